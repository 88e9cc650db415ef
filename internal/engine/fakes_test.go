package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/mongo"
	"context"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// fakeMessageRepo 按策略返回预置结果的消息库替身
type fakeMessageRepo struct {
	byKey        map[string][]*mongo.Message
	byPeer       []*mongo.Message
	legacy       []*mongo.Message
	loose        []*mongo.Message
	recent       []*mongo.Message
	byProviderID map[string]*mongo.Message
	saved        []*mongo.Message
	confirmed    map[string]string // local_client_id -> provider_msg_id
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		byKey:        make(map[string][]*mongo.Message),
		byProviderID: make(map[string]*mongo.Message),
		confirmed:    make(map[string]string),
	}
}

func (f *fakeMessageRepo) SaveMessage(_ context.Context, msg *mongo.Message) error {
	f.saved = append(f.saved, msg)
	return nil
}

func (f *fakeMessageRepo) FindByConversationKey(_ context.Context, _ uint64, key string, _ int) ([]*mongo.Message, error) {
	return f.byKey[key], nil
}

func (f *fakeMessageRepo) FindByPeer(_ context.Context, _ uint64, _, _ string, _ int) ([]*mongo.Message, error) {
	return f.byPeer, nil
}

func (f *fakeMessageRepo) FindLegacyByParticipants(_ context.Context, _ uint64, _ []string, _ int) ([]*mongo.Message, error) {
	return f.legacy, nil
}

func (f *fakeMessageRepo) FindLooseByParticipant(_ context.Context, _ uint64, _ string, _ int) ([]*mongo.Message, error) {
	return f.loose, nil
}

func (f *fakeMessageRepo) FindByProviderMsgID(_ context.Context, _ uint64, providerMsgID string) (*mongo.Message, error) {
	return f.byProviderID[providerMsgID], nil
}

func (f *fakeMessageRepo) FindRecent(_ context.Context, _ uint64, _ int) ([]*mongo.Message, error) {
	return f.recent, nil
}

func (f *fakeMessageRepo) ConfirmLocalSend(_ context.Context, localClientID, providerMsgID string, _ time.Time) error {
	f.confirmed[localClientID] = providerMsgID
	return nil
}

func (f *fakeMessageRepo) DeleteByLocalClientID(_ context.Context, localClientID string) error {
	kept := f.saved[:0]
	for _, m := range f.saved {
		if m.LocalClientID != localClientID || m.ProviderMsgID != "" {
			kept = append(kept, m)
		}
	}
	f.saved = kept
	return nil
}

// fakeThreadRepo 镜像表替身，可注入缺列错误模拟旧库
type fakeThreadRepo struct {
	mu            sync.Mutex
	rows          []*model.Thread
	missingShapes map[int]bool // 列集档位 -> 该档位是否缺列
	shapeIndex    func(columns []string) int
	batchErr      error
	batchCalls    int
	lastFields    map[string]interface{}
	lastIDs       []uint64
}

func newFakeThreadRepo(rows ...*model.Thread) *fakeThreadRepo {
	return &fakeThreadRepo{rows: rows, missingShapes: make(map[int]bool)}
}

func (f *fakeThreadRepo) addRow(row *model.Thread) {
	f.mu.Lock()
	f.rows = append(f.rows, row)
	f.mu.Unlock()
}

func (f *fakeThreadRepo) ListPage(_ context.Context, _ uint64, columns []string, offset, limit int) ([]*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shapeIndex != nil && f.missingShapes[f.shapeIndex(columns)] {
		return nil, &mysql.MySQLError{Number: 1054, Message: "Unknown column"}
	}
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
	for _, row := range f.rows {
		if row.ID == threadID {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) GetByConversationKey(_ context.Context, _ uint64, key string) (*model.Thread, error) {
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
	f.rows = append(f.rows, thread)
	return nil
}

func (f *fakeThreadRepo) UpdateFields(_ context.Context, _ uint64, fields map[string]interface{}) error {
	f.mu.Lock()
	f.lastFields = fields
	f.mu.Unlock()
	return nil
}

func (f *fakeThreadRepo) BatchUpdateFields(_ context.Context, ids []uint64, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return f.batchErr
	}
	f.lastIDs = ids
	f.lastFields = fields
	for _, row := range f.rows {
		for _, id := range ids {
			if row.ID != id {
				continue
			}
			for field, value := range fields {
				if apply, ok := fieldAppliers[field]; ok {
					apply(row, value)
				}
			}
			row.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (f *fakeThreadRepo) AdvanceSharedReadAt(_ context.Context, _ uint64, _ time.Time) error {
	return nil
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
	return f.entries, nil
}

func (f *fakeAuditRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// fakeCapabilityStore 记录持久化的列集档位
type fakeCapabilityStore struct {
	shape int
	saved int
}

func (f *fakeCapabilityStore) ColumnShape(_ context.Context, _, _ uint64) (int, error) {
	return f.shape, nil
}

func (f *fakeCapabilityStore) SaveColumnShape(_ context.Context, _, _ uint64, shape int) error {
	f.shape = shape
	f.saved++
	return nil
}
