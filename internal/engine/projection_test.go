package engine

import (
	"Leadline/internal/model"
	"testing"
	"time"
)

func threadRow(key string, activityMs int64) *model.Thread {
	at := time.UnixMilli(activityMs)
	return &model.Thread{
		ConversationKey: key,
		WorkspaceID:     1,
		AccountID:       "acc_1",
		LastMessageAt:   &at,
	}
}

func TestProjectionApplyRow(t *testing.T) {
	p := NewProjection()
	p.ApplyRow(threadRow("k1", 1000), 100)

	row, ok := p.Get("k1")
	if !ok {
		t.Fatal("row not found after ApplyRow")
	}
	if row.ConversationKey != "k1" {
		t.Fatalf("key = %q", row.ConversationKey)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestProjectionFieldLWWBySourceTime(t *testing.T) {
	p := NewProjection()
	p.ApplyRow(threadRow("k1", 1000), 100)

	// 快轮询补丁先到，源时刻 300
	if !p.ApplyFields("k1", map[string]interface{}{"is_spam": int8(1)}, 300) {
		t.Fatal("ApplyFields returned false for known key")
	}
	// 慢全量随后到达，源时刻 200，不得覆盖更新鲜的补丁
	stale := threadRow("k1", 1000)
	stale.IsSpam = 0
	p.ApplyRow(stale, 200)

	row, _ := p.Get("k1")
	if row.IsSpam != 1 {
		t.Fatal("slow full reload clobbered a fresher patch")
	}

	// 更新的整行写入可以覆盖旧补丁
	fresh := threadRow("k1", 1000)
	fresh.IsSpam = 0
	p.ApplyRow(fresh, 400)
	row, _ = p.Get("k1")
	if row.IsSpam != 0 {
		t.Fatal("fresh full row did not win over older patch")
	}
}

func TestProjectionPatchOrderIndependent(t *testing.T) {
	// 两个字段补丁以相反的到达顺序写入，结果只取决于源时刻
	build := func(first, second int64) int8 {
		p := NewProjection()
		p.ApplyRow(threadRow("k1", 1000), 0)
		p.ApplyFields("k1", map[string]interface{}{"priority": int8(1)}, first)
		p.ApplyFields("k1", map[string]interface{}{"priority": int8(0)}, second)
		row, _ := p.Get("k1")
		return row.Priority
	}
	if got := build(200, 100); got != 1 {
		t.Fatalf("older patch arriving later won: priority = %d", got)
	}
	if got := build(100, 200); got != 0 {
		t.Fatalf("newer patch lost: priority = %d", got)
	}
}

func TestProjectionApplyFieldsUnknownKey(t *testing.T) {
	p := NewProjection()
	if p.ApplyFields("missing", map[string]interface{}{"priority": int8(1)}, 100) {
		t.Fatal("ApplyFields should report unknown key")
	}
}

func TestProjectionReplaceAll(t *testing.T) {
	p := NewProjection()
	p.ApplyRow(threadRow("keep", 1000), 100)
	p.ApplyRow(threadRow("drop", 1000), 100)
	p.ApplyRow(threadRow("patched", 1000), 100)
	// patched 在重载开始后收到补丁，重载集未包含它也不能删
	p.ApplyFields("patched", map[string]interface{}{"priority": int8(1)}, 600)

	p.ReplaceAll([]*model.Thread{threadRow("keep", 2000), threadRow("new", 2000)}, 500)

	if !p.Has("keep") || !p.Has("new") {
		t.Fatal("reload rows missing from projection")
	}
	if p.Has("drop") {
		t.Fatal("stale entry survived full reload")
	}
	if !p.Has("patched") {
		t.Fatal("entry with patch newer than reload was dropped")
	}
}

func TestProjectionSnapshotOrdering(t *testing.T) {
	p := NewProjection()
	p.ApplyRow(threadRow("old", 1000), 100)
	p.ApplyRow(threadRow("tie_a", 5000), 100)
	p.ApplyRow(threadRow("tie_b", 5000), 100)
	p.ApplyRow(threadRow("newest", 9000), 100)

	rows := p.Snapshot()
	want := []string{"newest", "tie_a", "tie_b", "old"}
	if len(rows) != len(want) {
		t.Fatalf("snapshot len = %d, want %d", len(rows), len(want))
	}
	for i, key := range want {
		if rows[i].ConversationKey != key {
			t.Fatalf("snapshot[%d] = %q, want %q", i, rows[i].ConversationKey, key)
		}
	}
}

func TestProjectionRemove(t *testing.T) {
	p := NewProjection()
	p.ApplyRow(threadRow("k1", 1000), 100)
	p.Remove("k1")
	if p.Has("k1") {
		t.Fatal("row survived Remove")
	}
}

func TestProjectionChangeSignal(t *testing.T) {
	p := NewProjection()
	p.ApplyRow(threadRow("k1", 1000), 100)
	select {
	case <-p.Changes():
	default:
		t.Fatal("no change signal after ApplyRow")
	}
}
