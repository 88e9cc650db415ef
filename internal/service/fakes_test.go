package service

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/es"
	"Leadline/internal/pkg/mongo"
	"Leadline/internal/pkg/provider"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// fakeThreadRepo 镜像表替身
type fakeThreadRepo struct {
	mu             sync.Mutex
	rows           []*model.Thread
	updateErr      error
	lastFields     map[string]interface{}
	lastThreadID   uint64
	sharedAdvanced map[uint64]time.Time
}

func newFakeThreadRepo(rows ...*model.Thread) *fakeThreadRepo {
	return &fakeThreadRepo{rows: rows, sharedAdvanced: make(map[uint64]time.Time)}
}

func (f *fakeThreadRepo) ListPage(_ context.Context, _ uint64, _ []string, offset, limit int) ([]*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func (f *fakeThreadRepo) ListUpdatedAfter(_ context.Context, _ uint64, after time.Time, _ int) ([]*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Thread
	for _, row := range f.rows {
		if row.UpdatedAt.After(after) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeThreadRepo) GetByID(_ context.Context, threadID uint64) (*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == threadID {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) GetByConversationKey(_ context.Context, _ uint64, key string) (*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ConversationKey == key {
			return row, nil
		}
	}
	return nil, &mysql.MySQLError{Number: 1032, Message: "not found"}
}

func (f *fakeThreadRepo) GetByIDs(_ context.Context, _ uint64, ids []uint64) ([]*model.Thread, error) {
	var out []*model.Thread
	for _, row := range f.rows {
		for _, id := range ids {
			if row.ID == id {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (f *fakeThreadRepo) Upsert(_ context.Context, thread *model.Thread) error {
	f.mu.Lock()
	f.rows = append(f.rows, thread)
	f.mu.Unlock()
	return nil
}

func (f *fakeThreadRepo) UpdateFields(_ context.Context, threadID uint64, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastThreadID = threadID
	f.lastFields = fields
	return nil
}

func (f *fakeThreadRepo) BatchUpdateFields(_ context.Context, _ []uint64, fields map[string]interface{}) error {
	f.mu.Lock()
	f.lastFields = fields
	f.mu.Unlock()
	return nil
}

func (f *fakeThreadRepo) AdvanceSharedReadAt(_ context.Context, threadID uint64, at time.Time) error {
	f.mu.Lock()
	f.sharedAdvanced[threadID] = at
	f.mu.Unlock()
	return nil
}

// fakeReadMarkerRepo 已读水位替身
type fakeReadMarkerRepo struct {
	mu       sync.Mutex
	markers  []*model.ReadMarker
	advanced map[uint64]time.Time // threadID -> at
}

func newFakeReadMarkerRepo(markers ...*model.ReadMarker) *fakeReadMarkerRepo {
	return &fakeReadMarkerRepo{markers: markers, advanced: make(map[uint64]time.Time)}
}

func (f *fakeReadMarkerRepo) AdvanceMarker(_ context.Context, _, threadID, _ uint64, at time.Time) error {
	f.mu.Lock()
	f.advanced[threadID] = at
	f.mu.Unlock()
	return nil
}

func (f *fakeReadMarkerRepo) ListByWorkspace(_ context.Context, _ uint64) ([]*model.ReadMarker, error) {
	return f.markers, nil
}

// fakeAuditRepo 收集审计条目
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (f *fakeAuditRepo) Append(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
	return nil
}

func (f *fakeAuditRepo) AppendBatch(_ context.Context, entries []*model.AuditLog) error {
	f.mu.Lock()
	f.entries = append(f.entries, entries...)
	f.mu.Unlock()
	return nil
}

func (f *fakeAuditRepo) ListByThread(_ context.Context, _, _ uint64, _ int) ([]*model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

func (f *fakeAuditRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAuditRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeCapabilityRepo 能力档位与游标替身
type fakeCapabilityRepo struct {
	mu      sync.Mutex
	shapes  map[string]int
	cursors map[uint64]time.Time
}

func newFakeCapabilityRepo() *fakeCapabilityRepo {
	return &fakeCapabilityRepo{shapes: make(map[string]int), cursors: make(map[uint64]time.Time)}
}

func capKey(workspaceID, operatorID uint64) string {
	return fmt.Sprintf("%d:%d", workspaceID, operatorID)
}

func (f *fakeCapabilityRepo) ColumnShape(_ context.Context, workspaceID, operatorID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shapes[capKey(workspaceID, operatorID)], nil
}

func (f *fakeCapabilityRepo) SaveColumnShape(_ context.Context, workspaceID, operatorID uint64, shape int) error {
	f.mu.Lock()
	f.shapes[capKey(workspaceID, operatorID)] = shape
	f.mu.Unlock()
	return nil
}

func (f *fakeCapabilityRepo) LoadCursor(_ context.Context, workspaceID uint64) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursors[workspaceID], nil
}

func (f *fakeCapabilityRepo) SaveCursor(_ context.Context, workspaceID uint64, at time.Time) error {
	f.mu.Lock()
	f.cursors[workspaceID] = at
	f.mu.Unlock()
	return nil
}

// fakeTagRepo 标签替身
type fakeTagRepo struct {
	mu     sync.Mutex
	nextID uint64
	tags   map[string]*model.Tag  // name -> tag
	assocs map[uint64][]*model.ThreadTag
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{nextID: 1, tags: make(map[string]*model.Tag), assocs: make(map[uint64][]*model.ThreadTag)}
}

func (f *fakeTagRepo) GetOrCreateTag(_ context.Context, workspaceID uint64, name, color, icon, prompt string) (*model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tag, ok := f.tags[name]; ok {
		return tag, nil
	}
	tag := &model.Tag{ID: f.nextID, WorkspaceID: workspaceID, Name: name, Color: color, Icon: icon, Prompt: prompt}
	f.nextID++
	f.tags[name] = tag
	return tag, nil
}

func (f *fakeTagRepo) GetTag(_ context.Context, _ uint64, tagID uint64) (*model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tag := range f.tags {
		if tag.ID == tagID {
			return tag, nil
		}
	}
	return nil, &mysql.MySQLError{Number: 1032, Message: "not found"}
}

func (f *fakeTagRepo) ListByThread(_ context.Context, threadID uint64) ([]*model.ThreadTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assocs[threadID], nil
}

func (f *fakeTagRepo) ListByThreads(_ context.Context, threadIDs []uint64) (map[uint64][]*model.ThreadTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint64][]*model.ThreadTag)
	for _, id := range threadIDs {
		out[id] = f.assocs[id]
	}
	return out, nil
}

func (f *fakeTagRepo) AddAssociation(_ context.Context, threadID, tagID uint64, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tag model.Tag
	for _, t := range f.tags {
		if t.ID == tagID {
			tag = *t
		}
	}
	f.assocs[threadID] = append(f.assocs[threadID], &model.ThreadTag{ThreadID: threadID, TagID: tagID, Source: source, Tag: tag})
	return nil
}

func (f *fakeTagRepo) RemoveAssociation(_ context.Context, threadID, tagID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.assocs[threadID][:0]
	for _, assoc := range f.assocs[threadID] {
		if assoc.TagID != tagID {
			kept = append(kept, assoc)
		}
	}
	f.assocs[threadID] = kept
	return nil
}

func (f *fakeTagRepo) ReplaceClassTag(_ context.Context, threadID uint64, tagID uint64, removeTagIDs []uint64, source string, _ *string) error {
	for _, id := range removeTagIDs {
		_ = f.RemoveAssociation(context.Background(), threadID, id)
	}
	return f.AddAssociation(context.Background(), threadID, tagID, source)
}

// fakeMessageRepo 消息库替身，findHook 用于在查询窗口内注入并发行为
type fakeMessageRepo struct {
	mu        sync.Mutex
	byKey     map[string][]*mongo.Message
	saved     []*mongo.Message
	confirmed map[string]string
	findHook  func()
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byKey: make(map[string][]*mongo.Message), confirmed: make(map[string]string)}
}

func (f *fakeMessageRepo) SaveMessage(_ context.Context, msg *mongo.Message) error {
	f.mu.Lock()
	f.saved = append(f.saved, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessageRepo) FindByConversationKey(_ context.Context, _ uint64, key string, _ int) ([]*mongo.Message, error) {
	if f.findHook != nil {
		f.findHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byKey[key], nil
}

func (f *fakeMessageRepo) FindByPeer(_ context.Context, _ uint64, _, _ string, _ int) ([]*mongo.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) FindLegacyByParticipants(_ context.Context, _ uint64, _ []string, _ int) ([]*mongo.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) FindLooseByParticipant(_ context.Context, _ uint64, _ string, _ int) ([]*mongo.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) FindByProviderMsgID(_ context.Context, _ uint64, _ string) (*mongo.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) FindRecent(_ context.Context, _ uint64, _ int) ([]*mongo.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) ConfirmLocalSend(_ context.Context, localClientID, providerMsgID string, _ time.Time) error {
	f.mu.Lock()
	f.confirmed[localClientID] = providerMsgID
	f.mu.Unlock()
	return nil
}

func (f *fakeMessageRepo) DeleteByLocalClientID(_ context.Context, localClientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.saved[:0]
	for _, m := range f.saved {
		if m.LocalClientID != localClientID || m.ProviderMsgID != "" {
			kept = append(kept, m)
		}
	}
	f.saved = kept
	return nil
}

// fakeProvider 平台网关替身
type fakeProvider struct {
	mu       sync.Mutex
	sendErr  error
	result   *provider.SendResult
	sent     int
	lastText string
}

func (f *fakeProvider) SendText(_ context.Context, _, _, text, _, _ string) (*provider.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent++
	f.lastText = text
	return f.result, nil
}

func (f *fakeProvider) SendMedia(_ context.Context, _, _, _, _, _ string) (*provider.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent++
	return f.result, nil
}

func (f *fakeProvider) React(_ context.Context, _, _, _ string) error {
	return f.sendErr
}

// fakeSearchRepo 搜索索引替身
type fakeSearchRepo struct {
	docs []*es.ThreadES
}

func (f *fakeSearchRepo) IndexThread(_ context.Context, doc *es.ThreadES) error {
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeSearchRepo) DeleteThread(_ context.Context, _ uint64) error {
	return nil
}

func (f *fakeSearchRepo) SearchThreads(_ context.Context, _ uint64, _ string, _, _ int) ([]*es.ThreadES, error) {
	return f.docs, nil
}
