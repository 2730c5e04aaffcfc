package telegram

import "testing"

func TestConversationsDefaultIdle(t *testing.T) {
	c := newConversations()

	conv := c.get(1)
	if conv.state != stateIdle {
		t.Errorf("expected idle state, got %d", conv.state)
	}
}

func TestConversationsSetAndGet(t *testing.T) {
	c := newConversations()

	c.set(1, conversation{state: stateAwaitingChannelName, pendingChannelID: 123})

	conv := c.get(1)
	if conv.state != stateAwaitingChannelName {
		t.Errorf("unexpected state: %d", conv.state)
	}
	if conv.pendingChannelID != 123 {
		t.Errorf("pending channel id lost: %d", conv.pendingChannelID)
	}

	// Other chats are unaffected.
	if other := c.get(2); other.state != stateIdle {
		t.Errorf("state leaked across chats: %d", other.state)
	}
}

func TestConversationsReset(t *testing.T) {
	c := newConversations()

	c.set(1, conversation{state: stateAwaitingAdminID, pendingAdminOp: adminOpRemove})
	c.reset(1)

	conv := c.get(1)
	if conv.state != stateIdle {
		t.Errorf("expected idle after reset, got %d", conv.state)
	}
	if conv.pendingAdminOp != adminOpNone {
		t.Errorf("pending op survived reset: %d", conv.pendingAdminOp)
	}
}

func TestParseChannelIDCanonicalizes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1495211598", 1495211598, false},
		{"-1001495211598", 1495211598, false},
		{" 123 ", 123, false},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseChannelID(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseChannelID(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseChannelID(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseChannelID(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
