package engine

import "testing"

func testSession() *Session {
	return NewSession(1, 10, "acc_1", []string{"acc_1_alias"})
}

func TestResolveIdentity(t *testing.T) {
	s := testSession()

	tests := []struct {
		name     string
		rec      RawRecord
		wantPeer string
		wantKey  string
		strategy IdentityStrategy
		resolved bool
	}{
		{
			name:     "explicit peer id",
			rec:      RawRecord{PeerID: "peer_9", ConversationKey: "acc_1_peer_9"},
			wantPeer: "peer_9",
			wantKey:  "acc_1_peer_9",
			strategy: StrategyExplicit,
			resolved: true,
		},
		{
			name:     "placeholder peer falls through to key",
			rec:      RawRecord{PeerID: "unknown", ConversationKey: "acc_1_peer_9"},
			wantPeer: "peer_9",
			wantKey:  "acc_1_peer_9",
			strategy: StrategyFromKey,
			resolved: true,
		},
		{
			name:     "peer equal to own account rejected, participants used",
			rec:      RawRecord{PeerID: "acc_1", SenderID: "peer_7", RecipientID: "acc_1"},
			wantPeer: "peer_7",
			wantKey:  "acc_1_peer_7",
			strategy: StrategyParticipants,
			resolved: true,
		},
		{
			name:     "alias treated as self",
			rec:      RawRecord{SenderID: "acc_1_alias", RecipientID: "peer_3"},
			wantPeer: "peer_3",
			wantKey:  "acc_1_peer_3",
			strategy: StrategyParticipants,
			resolved: true,
		},
		{
			name:     "derived key when record has none",
			rec:      RawRecord{PeerID: "peer_2"},
			wantPeer: "peer_2",
			wantKey:  "acc_1_peer_2",
			strategy: StrategyExplicit,
			resolved: true,
		},
		{
			name:     "nothing usable stays unresolved",
			rec:      RawRecord{PeerID: "undefined", SenderID: "acc_1", RecipientID: "unknown_42"},
			wantPeer: "",
			wantKey:  "",
			strategy: StrategyUnresolved,
			resolved: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ResolveIdentity(tt.rec)
			if got.PeerID != tt.wantPeer {
				t.Fatalf("peer = %q, want %q", got.PeerID, tt.wantPeer)
			}
			if got.ConversationKey != tt.wantKey {
				t.Fatalf("key = %q, want %q", got.ConversationKey, tt.wantKey)
			}
			if got.Strategy != tt.strategy {
				t.Fatalf("strategy = %q, want %q", got.Strategy, tt.strategy)
			}
			if got.Resolved != tt.resolved {
				t.Fatalf("resolved = %v, want %v", got.Resolved, tt.resolved)
			}
		})
	}
}

func TestResolveIdentityDeterministic(t *testing.T) {
	s := testSession()
	rec := RawRecord{PeerID: "peer_9", SenderID: "peer_8", ConversationKey: "acc_1_peer_9"}
	first := s.ResolveIdentity(rec)
	for i := 0; i < 5; i++ {
		if got := s.ResolveIdentity(rec); got != first {
			t.Fatalf("resolution not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestInferDirection(t *testing.T) {
	s := testSession()

	tests := []struct {
		name string
		rec  RawRecord
		peer string
		want string
	}{
		{"explicit inbound", RawRecord{Direction: "inbound"}, "", "inbound"},
		{"sender is self", RawRecord{SenderID: "acc_1"}, "", "outbound"},
		{"recipient is self", RawRecord{RecipientID: "acc_1_alias"}, "", "inbound"},
		{"sender matches peer", RawRecord{SenderID: "peer_9"}, "peer_9", "inbound"},
		{"recipient matches peer", RawRecord{RecipientID: "peer_9"}, "peer_9", "outbound"},
		{
			"raw payload sender",
			RawRecord{RawPayload: map[string]interface{}{"sender_id": "acc_1"}},
			"", "outbound",
		},
		{
			"raw payload recipient matches peer",
			RawRecord{RawPayload: map[string]interface{}{"recipient_id": "peer_9"}},
			"peer_9", "outbound",
		},
		{"nothing usable", RawRecord{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InferDirection(tt.rec, tt.peer); got != tt.want {
				t.Fatalf("InferDirection = %q, want %q", got, tt.want)
			}
		})
	}
}
