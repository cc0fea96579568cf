// Package store owns the in-memory session state of the console. The
// synchronization engine is its only writer; the view and the rendering layer
// read snapshots. Messages are merge-only: nothing here ever deletes one.
package store

import (
	"sync"
	"time"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
	"agent-console/internal/domain/session"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*session.Session
	version  uint64
}

func New() *Store {
	return &Store{sessions: make(map[int64]*session.Session)}
}

// Version increments on every mutation; the ordering view memoizes on it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Get returns the session for a counterpart, or nil. The caller must treat the
// result as read-only; all writes go through store methods.
func (s *Store) Get(userID int64) *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// UpsertConversation applies a new or updated conversation assignment. For a
// known counterpart the conversation metadata and profile are replaced while
// messages, flags and badges survive; this is the defaults-merge the server
// relies on when a conversation is re-assigned or ends.
func (s *Store) UpsertConversation(conv conversation.Conversation, cust *customer.Customer) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++

	sess, ok := s.sessions[conv.UserID]
	if !ok {
		sess = session.New(conv, cust)
		s.sessions[conv.UserID] = sess
		return sess
	}
	sess.Conversation = conv
	if cust != nil {
		sess.Customer = cust
	}
	return sess
}

// EnsureSession creates a skeleton session when a message arrives for an
// unknown conversation and the profile lookup failed. A later lookup or
// CONV_UPDATE hydrates it.
func (s *Store) EnsureSession(userID int64) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	s.version++
	sess := session.New(conversation.Conversation{UserID: userID}, nil)
	s.sessions[userID] = sess
	return sess
}

// MergeMessage inserts a message into a session, idempotent by uuid: a
// re-delivered uuid keeps the existing entry untouched. Returns whether the
// message was newly inserted.
func (s *Store) MergeMessage(userID int64, m *message.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		s.version++
		sess = session.New(conversation.Conversation{UserID: userID}, nil)
		s.sessions[userID] = sess
	}
	if _, exists := sess.Messages[m.UUID]; exists {
		return false
	}
	s.version++
	sess.Messages[m.UUID] = m
	sess.LastMessage = m
	if m.CreatedAt != nil && m.CreatedAt.After(sess.LastMessageTime) {
		sess.LastMessageTime = *m.CreatedAt
	}
	return true
}

// ResolveDelivery applies the server ack to a pending outbound message: the
// stored entry is mutated in place, never re-inserted, so the optimistic
// placeholder and the synced message stay one object.
func (s *Store) ResolveDelivery(userID int64, uuid string, seqID int64, createdAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	m, ok := sess.Messages[uuid]
	if !ok {
		return false
	}
	s.version++
	m.SeqID = &seqID
	m.CreatedAt = &createdAt
	m.Delivery = message.DeliverySynced
	if createdAt.After(sess.LastMessageTime) {
		sess.LastMessageTime = createdAt
	}
	return true
}

// FailDelivery marks an outbound message failed after retry exhaustion. The
// sequence sentinel makes it sort last in the conversation, which is the
// resend affordance the rendering layer keys on.
func (s *Store) FailDelivery(userID int64, uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	m, ok := sess.Messages[uuid]
	if !ok {
		return false
	}
	s.version++
	sentinel := message.SeqSentinel
	m.SeqID = &sentinel
	m.Delivery = message.DeliveryFailed
	return true
}

// ResetDelivery returns a failed message to the pending state for a resend.
func (s *Store) ResetDelivery(userID int64, uuid string) *message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	m, ok := sess.Messages[uuid]
	if !ok || m.Delivery != message.DeliveryFailed {
		return nil
	}
	s.version++
	m.SeqID = nil
	m.Delivery = message.DeliveryPending
	return m
}

func (s *Store) SetPinned(userID int64, pinned bool) {
	s.mutate(userID, func(sess *session.Session) {
		sess.Pinned = pinned
	})
}

func (s *Store) SetHidden(userID int64, hidden bool) {
	s.mutate(userID, func(sess *session.Session) {
		sess.Hidden = hidden
	})
}

func (s *Store) SetInteractionState(userID int64, state session.InteractionState) {
	s.mutate(userID, func(sess *session.Session) {
		sess.Interaction = state
	})
}

func (s *Store) IncrementUnreadBadge(userID int64) {
	s.mutate(userID, func(sess *session.Session) {
		sess.UnreadBadge++
	})
}

func (s *Store) ClearUnreadBadge(userID int64) {
	s.mutate(userID, func(sess *session.Session) {
		sess.UnreadBadge = 0
	})
}

// UpdateCustomerStatus caches the counterpart's presence as reported by
// ONLINE_STATUS_CHANGED events.
func (s *Store) UpdateCustomerStatus(status *customer.Status) {
	s.mutate(status.UserID, func(sess *session.Session) {
		if sess.Customer == nil {
			sess.Customer = &customer.Customer{UserID: status.UserID}
		}
		sess.Customer.Status = status
	})
}

func (s *Store) mutate(userID int64, fn func(*session.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return
	}
	s.version++
	fn(sess)
}
