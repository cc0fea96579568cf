package session

import (
	"time"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
)

// InteractionState drives badge and notification behavior for one session.
type InteractionState int

const (
	// InteractionUnread marks a session with inbound messages the operator has
	// not looked at yet.
	InteractionUnread InteractionState = iota
	// InteractionReadUnreplied marks a focused session the operator has seen
	// but not answered.
	InteractionReadUnreplied
	// InteractionReplied marks a session whose last inbound message has been
	// answered.
	InteractionReplied
)

func (s InteractionState) String() string {
	switch s {
	case InteractionUnread:
		return "UNREAD"
	case InteractionReadUnreplied:
		return "READ_UNREPLIED"
	default:
		return "REPLIED"
	}
}

// Session aggregates one conversation's messages, counterpart profile and
// display flags. Keyed by the customer counterpart's user id; a new
// conversation with a known counterpart replaces metadata but never drops
// messages.
type Session struct {
	Conversation conversation.Conversation
	Customer     *customer.Customer

	// Messages maps message uuid to message; insertion order is irrelevant,
	// readers sort by sequence id.
	Messages map[string]*message.Message

	LastMessage     *message.Message
	LastMessageTime time.Time

	Pinned      bool
	Hidden      bool
	Interaction InteractionState
	UnreadBadge int
}

// New creates a session for a freshly assigned conversation.
func New(conv conversation.Conversation, cust *customer.Customer) *Session {
	return &Session{
		Conversation: conv,
		Customer:     cust,
		Messages:     make(map[string]*message.Message),
		Interaction:  InteractionReplied,
	}
}

// UserID returns the counterpart identity the session is keyed by.
func (s *Session) UserID() int64 {
	return s.Conversation.UserID
}
