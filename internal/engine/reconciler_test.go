package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/mongo"
	"context"
	"testing"
	"time"
)

func msg(providerID, text string, tsMs int64) *mongo.Message {
	return &mongo.Message{
		ID:            "doc_" + providerID,
		ProviderMsgID: providerID,
		Direction:     "inbound",
		Text:          text,
		Timestamp:     time.UnixMilli(tsMs),
		RawProviderTs: tsMs,
	}
}

func reconTestThread() *model.Thread {
	return &model.Thread{
		ID:              1,
		WorkspaceID:     1,
		ConversationKey: "acc_1_peer_9",
		AccountID:       "acc_1",
		PeerID:          "peer_9",
	}
}

func TestFetchThreadMessagesMergeFirstSeenWins(t *testing.T) {
	repo := newFakeMessageRepo()
	keyed := msg("m1", "from key strategy", 1000)
	repo.byKey["acc_1_peer_9"] = []*mongo.Message{keyed}
	// 同一条消息经对端策略再次返回，不同文案用于区分来源
	dup := msg("m1", "from peer strategy", 1000)
	repo.byPeer = []*mongo.Message{dup, msg("m2", "only via peer", 2000)}
	repo.loose = []*mongo.Message{msg("m3", "only via loose", 1500)}

	r := NewReconciler(repo, 100)
	got, err := r.FetchThreadMessages(context.Background(), reconTestThread())
	if err != nil {
		t.Fatalf("FetchThreadMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("merged %d messages, want 3", len(got))
	}
	for _, m := range got {
		if m.ProviderMsgID == "m1" && m.Text != "from key strategy" {
			t.Fatalf("first-seen-wins violated: %q", m.Text)
		}
	}
}

func TestFetchThreadMessagesAscendingOrder(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.byKey["acc_1_peer_9"] = []*mongo.Message{
		msg("m3", "", 3000), msg("m1", "", 1000), msg("m2", "", 2000),
	}
	r := NewReconciler(repo, 100)
	got, err := r.FetchThreadMessages(context.Background(), reconTestThread())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(got); i++ {
		if MessageAt(got[i-1]) > MessageAt(got[i]) {
			t.Fatalf("messages not ascending at %d", i)
		}
	}
}

func TestFetchThreadMessagesFiltersPlaceholders(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.byKey["acc_1_peer_9"] = []*mongo.Message{
		msg("m1", "real", 1000),
		// 投递事件占位行：无消息身份、无方向、无内容
		{ID: "doc_evt", RawPayload: mongo.MMap{"event": "delivered"}},
	}
	r := NewReconciler(repo, 100)
	got, err := r.FetchThreadMessages(context.Background(), reconTestThread())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ProviderMsgID != "m1" {
		t.Fatalf("placeholder row not filtered: %d rows", len(got))
	}
}

func TestFetchThreadMessagesSecondaryResolution(t *testing.T) {
	repo := newFakeMessageRepo()
	// 四路全空，但最后一条已知消息揭示平台用的另一个分组键
	anchor := msg("m_last", "anchor", 1000)
	anchor.ConversationKey = "legacy_group_7"
	repo.byProviderID["m_last"] = anchor
	repo.byKey["legacy_group_7"] = []*mongo.Message{anchor, msg("m2", "sibling", 2000)}

	th := reconTestThread()
	th.LastMessageID = "m_last"
	r := NewReconciler(repo, 100)
	got, err := r.FetchThreadMessages(context.Background(), th)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("secondary resolution returned %d rows, want 2", len(got))
	}
}

func TestRenderable(t *testing.T) {
	tests := []struct {
		name string
		m    *mongo.Message
		want bool
	}{
		{"nil", nil, false},
		{"provider id", &mongo.Message{ProviderMsgID: "m1"}, true},
		{"local send marker", &mongo.Message{LocalClientID: "c1"}, true},
		{"raw payload id", &mongo.Message{RawPayload: mongo.MMap{"msg_id": "x"}}, true},
		{"direction with text", &mongo.Message{Direction: "inbound", Text: "hi"}, true},
		{"direction with timestamp", &mongo.Message{Direction: "outbound", RawProviderTs: 1717207200}, true},
		{"direction only", &mongo.Message{Direction: "inbound"}, false},
		{"bare event row", &mongo.Message{RawPayload: mongo.MMap{"event": "read"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Renderable(tt.m); got != tt.want {
				t.Fatalf("Renderable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageKeyOptimisticMerge(t *testing.T) {
	// 乐观行确认后带上平台 id，与推送回来的同条消息合并为一行
	confirmed := &mongo.Message{LocalClientID: "c1", ProviderMsgID: "m9"}
	pushed := &mongo.Message{ProviderMsgID: "m9"}
	if messageKey(confirmed) != messageKey(pushed) {
		t.Fatal("confirmed optimistic row does not merge with provider copy")
	}
	pending := &mongo.Message{LocalClientID: "c1"}
	if messageKey(pending) == messageKey(pushed) {
		t.Fatal("pending optimistic row collided with provider copy")
	}
}
