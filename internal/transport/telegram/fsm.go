package telegram

import "sync"

// conversationState is the single canonical FSM for multi-step operator
// input. Every state returns to stateIdle on completion or /cancel.
type conversationState int

const (
	stateIdle conversationState = iota
	stateAwaitingKeywordInput
	stateAwaitingChannelID
	stateAwaitingChannelName
	stateAwaitingAdminID
	stateAwaitingSearchText
)

// adminOp distinguishes which admin edit an awaiting-admin-id state belongs to.
type adminOp int

const (
	adminOpNone adminOp = iota
	adminOpAdd
	adminOpRemove
)

// conversation holds the per-chat FSM state plus the data collected so far.
type conversation struct {
	state            conversationState
	pendingChannelID int64
	pendingAdminOp   adminOp
}

// conversations tracks one conversation per chat.
type conversations struct {
	mu    sync.Mutex
	chats map[int64]*conversation
}

func newConversations() *conversations {
	return &conversations{
		chats: map[int64]*conversation{},
	}
}

// get returns the conversation for a chat, creating an idle one if needed.
func (c *conversations) get(chatID int64) conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conv, ok := c.chats[chatID]; ok {
		return *conv
	}
	return conversation{state: stateIdle}
}

// set replaces the conversation for a chat.
func (c *conversations) set(chatID int64, conv conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conv.state == stateIdle {
		delete(c.chats, chatID)
		return
	}
	copied := conv
	c.chats[chatID] = &copied
}

// reset returns the chat to idle.
func (c *conversations) reset(chatID int64) {
	c.set(chatID, conversation{state: stateIdle})
}
