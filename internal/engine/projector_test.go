package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/mongo"
	"context"
	"testing"
	"time"
)

func mirrorRow(id uint64, key string, activityMs int64) *model.Thread {
	at := time.UnixMilli(activityMs)
	return &model.Thread{
		ID:              id,
		WorkspaceID:     1,
		ConversationKey: key,
		AccountID:       "acc_1",
		LastMessageAt:   &at,
		UpdatedAt:       at,
	}
}

func newTestProjector(threads *fakeThreadRepo, messages *fakeMessageRepo, caps CapabilityStore) *Projector {
	return NewProjector(threads, messages, caps, nil, 2, 100, 50)
}

func TestLoadWorkspacePaginates(t *testing.T) {
	threads := newFakeThreadRepo(
		mirrorRow(1, "k1", 5000),
		mirrorRow(2, "k2", 4000),
		mirrorRow(3, "k3", 3000),
		mirrorRow(4, "k4", 2000),
		mirrorRow(5, "k5", 1000),
	)
	p := newTestProjector(threads, newFakeMessageRepo(), nil)
	rows, err := p.LoadWorkspace(context.Background(), testSession())
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("loaded %d rows across pages, want 5", len(rows))
	}
}

func TestLoadWorkspaceRowCeiling(t *testing.T) {
	var all []*model.Thread
	for i := uint64(1); i <= 20; i++ {
		all = append(all, mirrorRow(i, "k"+string(rune('a'+i)), int64(i*1000)))
	}
	threads := newFakeThreadRepo(all...)
	p := NewProjector(threads, newFakeMessageRepo(), nil, nil, 4, 10, 50)
	rows, err := p.LoadWorkspace(context.Background(), testSession())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 10 {
		t.Fatalf("row ceiling not enforced: %d rows", len(rows))
	}
}

func TestLoadWorkspaceColumnShapeFallback(t *testing.T) {
	threads := newFakeThreadRepo(mirrorRow(1, "k1", 1000))
	// 最富档位缺列，次档位可用
	threads.shapeIndex = func(columns []string) int {
		for i, shape := range defaultColumnShapes {
			if len(shape) == len(columns) {
				return i
			}
		}
		return -1
	}
	threads.missingShapes[0] = true

	caps := &fakeCapabilityStore{}
	s := testSession()
	p := newTestProjector(threads, newFakeMessageRepo(), caps)
	rows, err := p.LoadWorkspace(context.Background(), s)
	if err != nil {
		t.Fatalf("fallback did not recover: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("loaded %d rows, want 1", len(rows))
	}
	if s.ColumnShape() != 1 {
		t.Fatalf("session shape = %d, want 1", s.ColumnShape())
	}
	if caps.shape != 1 || caps.saved != 1 {
		t.Fatalf("capability not persisted: shape=%d saved=%d", caps.shape, caps.saved)
	}

	// 同会话再次加载直接从降级档位开始，不再撞缺列错误
	if _, err := p.LoadWorkspace(context.Background(), s); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if caps.saved != 1 {
		t.Fatalf("capability re-persisted: saved=%d", caps.saved)
	}
}

func TestLoadWorkspaceSynthesizesFromMessages(t *testing.T) {
	messages := newFakeMessageRepo()
	old := msg("m1", "older", 1000)
	old.AccountID, old.SenderID = "acc_1", "peer_9"
	newer := msg("m2", "newer", 2000)
	newer.AccountID, newer.SenderID = "acc_1", "peer_9"
	other := msg("m3", "other peer", 1500)
	other.AccountID, other.SenderID = "acc_1", "peer_7"
	messages.recent = []*mongo.Message{old, newer, other}

	p := newTestProjector(newFakeThreadRepo(), messages, nil)
	rows, err := p.LoadWorkspace(context.Background(), testSession())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("synthesized %d threads, want 2", len(rows))
	}
	// 每组保留最新一条，按活跃倒序
	if rows[0].ConversationKey != "acc_1_peer_9" || rows[0].LastMessageText != "newer" {
		t.Fatalf("group head wrong: %+v", rows[0])
	}
	if rows[0].LastMessageDirection != "inbound" || rows[0].LastInboundAt == nil {
		t.Fatalf("direction not inferred: %+v", rows[0])
	}
	if rows[1].ConversationKey != "acc_1_peer_7" {
		t.Fatalf("second group wrong: %+v", rows[1])
	}
}

func TestDedupeByRecency(t *testing.T) {
	rows := []*model.Thread{
		mirrorRow(1, "dup", 1000),
		mirrorRow(2, "dup", 5000),
		mirrorRow(3, "solo", 3000),
		{ConversationKey: ""}, // 无键行丢弃
	}
	out := dedupeByRecency(rows)
	if len(out) != 2 {
		t.Fatalf("dedupe kept %d rows, want 2", len(out))
	}
	if out[0].ConversationKey != "dup" || out[0].ID != 2 {
		t.Fatalf("recency-first dedupe kept wrong row: %+v", out[0])
	}
	if out[1].ConversationKey != "solo" {
		t.Fatalf("order wrong: %+v", out[1])
	}
}
