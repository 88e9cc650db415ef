package service

import (
	"Leadline/internal/api/config"
	"Leadline/internal/api/dto"
	"Leadline/internal/engine"
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/mongo"
	"Leadline/internal/pkg/provider"
	"Leadline/internal/pkg/security"
	"context"
	"errors"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func threadRow(id uint64, key, peerID string, lastInbound time.Time) *model.Thread {
	row := &model.Thread{
		ID:              id,
		WorkspaceID:     1,
		ConversationKey: key,
		AccountID:       "acc_1",
		PeerID:          peerID,
		LeadStatus:      consts.LeadStatusOpen,
		UpdatedAt:       lastInbound,
	}
	if !lastInbound.IsZero() {
		row.LastInboundAt = &lastInbound
		row.LastMessageAt = &lastInbound
		row.LastMessageDirection = consts.DirectionInbound
	}
	return row
}

type inboxFixture struct {
	svc      InboxService
	hub      *engine.Hub
	threads  *fakeThreadRepo
	markers  *fakeReadMarkerRepo
	audits   *fakeAuditRepo
	messages *fakeMessageRepo
	gateway  *fakeProvider
}

func newInboxFixture(t *testing.T, markers []*model.ReadMarker, rows ...*model.Thread) *inboxFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Engine.ApplyDefaults()
	cfg.Engine.FastPollInterval = 60000 // 测试内不触发周期轮询
	config.Cfg = cfg

	f := &inboxFixture{
		hub:      engine.NewHub(),
		threads:  newFakeThreadRepo(rows...),
		markers:  newFakeReadMarkerRepo(markers...),
		audits:   &fakeAuditRepo{},
		messages: newFakeMessageRepo(),
		gateway:  &fakeProvider{result: &provider.SendResult{ProviderMsgID: "pm_1", Timestamp: 1718000000}},
	}
	f.svc = NewInboxService(f.hub, f.threads, f.markers, f.audits,
		newFakeCapabilityRepo(), newFakeTagRepo(), f.messages, &fakeSearchRepo{}, f.gateway)

	t.Cleanup(func() {
		f.hub.CloseAll()
		f.svc.Close()
	})
	return f
}

func (f *inboxFixture) open(t *testing.T) *engine.Instance {
	t.Helper()
	claims := &security.OperatorClaims{
		OperatorID:  10,
		WorkspaceID: 1,
		AccountID:   "acc_1",
		Roles:       []string{"OWNER"},
	}
	if err := f.svc.OpenSession(context.Background(), claims); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	inst, ok := f.hub.Get(1, 10)
	if !ok {
		t.Fatal("instance not registered")
	}
	waitFor(t, func() bool { return inst.Projection.Len() > 0 })
	return inst
}

func TestOpenSessionLoadsProjection(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil,
		threadRow(1, "acc_1_peer_a", "peer_a", base),
		threadRow(2, "acc_1_peer_b", "peer_b", base.Add(time.Minute)),
	)
	f.open(t)

	res, err := f.svc.ListThreads(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("want 2 threads, got %d", len(res))
	}
	// 活跃靠前
	if res[0].ConversationKey != "acc_1_peer_b" {
		t.Fatalf("want most recent first, got %s", res[0].ConversationKey)
	}
}

func TestDelegateVisibilityFilter(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	hidden := threadRow(1, "acc_1_peer_a", "peer_a", base)
	hidden.HiddenFromDelegates = 1
	shared := threadRow(2, "acc_1_peer_b", "peer_b", base)
	shared.HiddenFromDelegates = 1
	shared.SharedWithDelegates = 1

	f := newInboxFixture(t, nil, hidden, shared)
	f.open(t)

	owner, err := f.svc.ListThreads(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("ListThreads owner: %v", err)
	}
	if len(owner) != 2 {
		t.Fatalf("owner should see both, got %d", len(owner))
	}

	delegate, err := f.svc.ListThreads(context.Background(), 1, 10, true)
	if err != nil {
		t.Fatalf("ListThreads delegate: %v", err)
	}
	if len(delegate) != 1 || delegate[0].ConversationKey != "acc_1_peer_b" {
		t.Fatalf("delegate should only see shared thread, got %v", delegate)
	}
}

func TestSendTextOptimisticRoundTrip(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_peer_a", "peer_a", base))
	inst := f.open(t)

	res, err := f.svc.SendText(context.Background(), 1, 10, &dto.SendTextReq{
		ConversationKey: "acc_1_peer_a",
		Text:            "hello there",
	})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if res.ProviderMsgID != "pm_1" || res.Pending {
		t.Fatalf("want confirmed message, got %+v", res)
	}
	if len(f.messages.saved) != 1 {
		t.Fatalf("want 1 placeholder saved, got %d", len(f.messages.saved))
	}
	placeholder := f.messages.saved[0]
	if placeholder.Direction != consts.DirectionOutbound || placeholder.LocalClientID == "" {
		t.Fatalf("bad placeholder: %+v", placeholder)
	}
	if f.messages.confirmed[placeholder.LocalClientID] != "pm_1" {
		t.Fatal("placeholder not confirmed with provider msg id")
	}

	row, ok := inst.Projection.Get("acc_1_peer_a")
	if !ok {
		t.Fatal("thread missing from projection")
	}
	if row.LastMessageText != "hello there" || row.LastMessageDirection != consts.DirectionOutbound {
		t.Fatalf("projection not updated: %+v", row)
	}
	if inst.Overrides.Pending("acc_1_peer_a") {
		t.Fatal("override should be confirmed after provider ack")
	}
}

func TestSendTextUnresolvedPeerReadOnly(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_unknown", "", base))
	f.open(t)

	_, err := f.svc.SendText(context.Background(), 1, 10, &dto.SendTextReq{
		ConversationKey: "acc_1_unknown",
		Text:            "hello",
	})
	if !errors.Is(err, ErrPeerUnresolved) {
		t.Fatalf("want ErrPeerUnresolved, got %v", err)
	}
	if f.gateway.sent != 0 {
		t.Fatal("provider should not be called for unresolved peer")
	}
}

func TestSendTextProviderFailure(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_peer_a", "peer_a", base))
	inst := f.open(t)
	f.gateway.sendErr = errors.New("gateway down")

	_, err := f.svc.SendText(context.Background(), 1, 10, &dto.SendTextReq{
		ConversationKey: "acc_1_peer_a",
		Text:            "hello",
	})
	if !errors.Is(err, ErrProviderSend) {
		t.Fatalf("want ErrProviderSend, got %v", err)
	}
	if inst.Overrides.Pending("acc_1_peer_a") {
		t.Fatal("failed send must discard optimistic override")
	}
	if len(f.messages.confirmed) != 0 {
		t.Fatal("nothing should be confirmed after failure")
	}
}

func TestSendTextFailureRemovesPlaceholder(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_peer_a", "peer_a", base))
	f.open(t)
	f.gateway.sendErr = errors.New("gateway down")

	_, err := f.svc.SendText(context.Background(), 1, 10, &dto.SendTextReq{
		ConversationKey: "acc_1_peer_a",
		Text:            "hello",
	})
	if !errors.Is(err, ErrProviderSend) {
		t.Fatalf("want ErrProviderSend, got %v", err)
	}
	// 占位行必须随失败一起撤掉，否则对所有操作员都是一条永远 pending 的幽灵消息
	if leftover := len(f.messages.saved); leftover != 0 {
		t.Fatalf("failed send left %d placeholder rows in message store", leftover)
	}
}

func TestSendTextPlaceholderPeerReadOnly(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	// 外部写入的镜像行可能原样带 "unknown" 占位对端，与空串同等视为未解析
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_unknown", "unknown", base))
	f.open(t)

	_, err := f.svc.SendText(context.Background(), 1, 10, &dto.SendTextReq{
		ConversationKey: "acc_1_unknown",
		Text:            "hello",
	})
	if !errors.Is(err, ErrPeerUnresolved) {
		t.Fatalf("want ErrPeerUnresolved, got %v", err)
	}
	if f.gateway.sent != 0 {
		t.Fatal("provider should not be called for placeholder peer")
	}
}

func TestSelectThreadMessages(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_peer_a", "peer_a", base))
	f.messages.byKey["acc_1_peer_a"] = []*mongo.Message{
		{ID: "m2", ProviderMsgID: "p2", ConversationKey: "acc_1_peer_a", AccountID: "acc_1",
			PeerID: "peer_a", SenderID: "peer_a", Text: "second", Timestamp: base.Add(2 * time.Minute)},
		{ID: "m1", ProviderMsgID: "p1", ConversationKey: "acc_1_peer_a", AccountID: "acc_1",
			PeerID: "peer_a", SenderID: "peer_a", Text: "first", Timestamp: base.Add(time.Minute)},
	}
	f.open(t)

	res, err := f.svc.SelectThread(context.Background(), 1, 10, "acc_1_peer_a")
	if err != nil {
		t.Fatalf("SelectThread: %v", err)
	}
	if res.ReadOnly {
		t.Fatal("resolved peer should not be read-only")
	}
	if len(res.Messages) != 2 || res.Messages[0].Text != "first" {
		t.Fatalf("want ascending messages, got %+v", res.Messages)
	}
	if res.Messages[0].Direction != consts.DirectionInbound {
		t.Fatalf("want inferred inbound direction, got %s", res.Messages[0].Direction)
	}
}

func TestSelectThreadStaleDiscard(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil,
		threadRow(1, "acc_1_peer_a", "peer_a", base),
		threadRow(2, "acc_1_peer_b", "peer_b", base),
	)
	inst := f.open(t)

	// 第一条会话的查询窗口内用户又点了第二条
	f.messages.findHook = func() {
		f.messages.findHook = nil
		inst.Session.Select("acc_1_peer_b")
	}

	_, err := f.svc.SelectThread(context.Background(), 1, 10, "acc_1_peer_a")
	if !errors.Is(err, ErrStaleSelection) {
		t.Fatalf("want ErrStaleSelection, got %v", err)
	}
}

func TestMarkReadDualWrite(t *testing.T) {
	lastInbound := time.Now().Add(-time.Minute)
	marker := &model.ReadMarker{WorkspaceID: 1, ThreadID: 1, OperatorID: 10,
		LastReadAt: lastInbound.Add(-time.Hour)}
	f := newInboxFixture(t, []*model.ReadMarker{marker}, threadRow(1, "acc_1_peer_a", "peer_a", lastInbound))
	f.open(t)

	res, err := f.svc.ListThreads(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if !res[0].Unread {
		t.Fatal("thread with stale marker should be unread")
	}

	if err := f.svc.MarkRead(context.Background(), 1, 10, &dto.MarkReadReq{
		ConversationKey: "acc_1_peer_a",
	}); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	if _, ok := f.markers.advanced[1]; !ok {
		t.Fatal("operator marker not advanced")
	}
	if _, ok := f.threads.sharedAdvanced[1]; !ok {
		t.Fatal("shared watermark not advanced")
	}

	res, err = f.svc.ListThreads(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if res[0].Unread {
		t.Fatal("thread should be read after MarkRead")
	}
}

func TestMutatePriorityAndAudit(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_peer_a", "peer_a", base))
	inst := f.open(t)

	if err := f.svc.SetPriority(context.Background(), 1, 10, &dto.PriorityThreadReq{
		ConversationKey: "acc_1_peer_a",
		Priority:        true,
	}); err != nil {
		t.Fatalf("SetPriority: %v", err)
	}

	row, _ := inst.Projection.Get("acc_1_peer_a")
	if row.Priority != 1 {
		t.Fatal("projection priority not applied")
	}
	if f.threads.lastFields["priority"] != int8(1) {
		t.Fatalf("db fields wrong: %v", f.threads.lastFields)
	}
	waitFor(t, func() bool { return f.audits.count() == 1 })
}

func TestMutateRollbackOnDBFailure(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	f := newInboxFixture(t, nil, threadRow(1, "acc_1_peer_a", "peer_a", base))
	inst := f.open(t)
	f.threads.updateErr = errors.New("db gone")

	err := f.svc.SetSpam(context.Background(), 1, 10, &dto.SpamThreadReq{
		ConversationKey: "acc_1_peer_a",
		Spam:            true,
	})
	if !errors.Is(err, UnExpectedError) {
		t.Fatalf("want UnExpectedError, got %v", err)
	}

	row, _ := inst.Projection.Get("acc_1_peer_a")
	if row.IsSpam != 0 {
		t.Fatal("failed mutation must roll back projection")
	}
	if inst.Overrides.Pending("acc_1_peer_a") {
		t.Fatal("failed mutation must discard override")
	}
}

func TestAssignClearsHidden(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	row := threadRow(1, "acc_1_peer_a", "peer_a", base)
	row.HiddenFromDelegates = 1
	f := newInboxFixture(t, nil, row)
	inst := f.open(t)

	assignee := uint64(77)
	if err := f.svc.Assign(context.Background(), 1, 10, &dto.AssignThreadReq{
		ConversationKey: "acc_1_peer_a",
		AssigneeID:      &assignee,
	}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	got, _ := inst.Projection.Get("acc_1_peer_a")
	if got.AssignedOperatorID == nil || *got.AssignedOperatorID != 77 {
		t.Fatalf("assignee not applied: %+v", got.AssignedOperatorID)
	}
	if got.HiddenFromDelegates != 0 {
		t.Fatal("assignment must clear delegate hiding")
	}
}
