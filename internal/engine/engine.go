// Package engine is the synchronization core of the console: it reconciles
// the live socket channel against the session store, recovers sequence gaps
// through backfill queries, tracks read/reply state per conversation and
// retries failed sends.
package engine

import (
	"context"
	"encoding/json"
	"sync"

	"agent-console/internal/auth"
	"agent-console/internal/codec"
	"agent-console/internal/dispatch"
	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/message"
	"agent-console/internal/domain/session"
	"agent-console/internal/lookup"
	"agent-console/internal/retry"
	"agent-console/internal/store"
	"agent-console/internal/transport"
	console_errors "agent-console/pkg/errors"
	"agent-console/pkg/logger"
)

// Socket event names.
const (
	EventRegister = "register"
	EventSend     = "msg/send"
	EventReceive  = "msg/receive"
	EventAssign   = "conv/assign"
)

// Transport is the request/response surface the engine sends through.
// *transport.Adapter satisfies it; tests substitute fakes.
type Transport interface {
	Send(ctx context.Context, event string, req transport.Request) (transport.Response, error)
}

type Engine struct {
	ctx    context.Context
	staff  auth.StaffConfig
	trans  Transport
	policy retry.Policy
	store  *store.Store
	cursor *Cursor
	lookup lookup.Service
	bus    *dispatch.Bus
	log    *logger.Logger

	mu               sync.Mutex
	focused          int64
	pendingTransfers map[int64]conversation.TransferQuery

	// sends tracks in-flight send pipelines so Close can drain them.
	sends sync.WaitGroup
}

func New(ctx context.Context, staff auth.StaffConfig, trans Transport, policy retry.Policy,
	st *store.Store, lk lookup.Service, bus *dispatch.Bus, log *logger.Logger) *Engine {
	return &Engine{
		ctx:              ctx,
		staff:            staff,
		trans:            trans,
		policy:           policy,
		store:            st,
		cursor:           &Cursor{},
		lookup:           lk,
		bus:              bus,
		log:              log,
		pendingTransfers: make(map[int64]conversation.TransferQuery),
	}
}

// Bind attaches the engine to the server-pushed events of the socket.
func (e *Engine) Bind(sock *transport.Socket) {
	sock.Handle(EventReceive, e.handleReceive)
	sock.Handle(EventAssign, e.handleAssign)
}

// Register announces the staff identity on the socket channel.
func (e *Engine) Register(ctx context.Context) error {
	req, err := transport.NewRequest(e.staff)
	if err != nil {
		return err
	}
	_, err = e.trans.Send(ctx, EventRegister, req)
	return err
}

// Close waits for in-flight send pipelines to finish.
func (e *Engine) Close() {
	e.sends.Wait()
}

// Store exposes the session state for read-only consumers (view, API).
func (e *Engine) Store() *store.Store {
	return e.store
}

// Bus exposes the dispatch boundary the rendering layer subscribes to.
func (e *Engine) Bus() *dispatch.Bus {
	return e.bus
}

// Cursor returns the current sync watermark.
func (e *Engine) CursorValue() int64 {
	return e.cursor.Load()
}

// --- outbound sends ---

// SendText sends a text message to a customer, optimistically inserting it
// before the server ack.
func (e *Engine) SendText(to int64, text string) *message.Message {
	m := codec.NewText(to, text)
	e.dispatchSend(m)
	return m
}

// SendImage sends an image message; content must already be uploaded.
func (e *Engine) SendImage(to int64, img message.ImageContent) *message.Message {
	m := codec.NewImage(to, img)
	e.dispatchSend(m)
	return m
}

// SendFile sends a file message; content must already be uploaded.
func (e *Engine) SendFile(to int64, file message.FileContent) *message.Message {
	m := codec.NewFile(to, file)
	e.dispatchSend(m)
	return m
}

// ResendMessage re-runs the send pipeline for a failed message, reusing its
// uuid so the server can deduplicate.
func (e *Engine) ResendMessage(userID int64, uuid string) error {
	m := e.store.ResetDelivery(userID, uuid)
	if m == nil {
		return console_errors.ErrNotFailed
	}
	e.dispatchSend(m)
	return nil
}

// dispatchSend stamps the message, optimistically merges chat messages into
// the owning session and runs the retry-wrapped transport call in the
// background. The optimistic insert is never rolled back: a failed send stays
// visible with its failed state.
func (e *Engine) dispatchSend(m *message.Message) {
	m.From = e.staff.StaffID
	m.NickName = e.staff.NickName
	m.Delivery = message.DeliveryPending

	if !m.IsSystem() {
		e.store.MergeMessage(m.To, m)
		e.bus.Publish(dispatch.EventMessageMerged, m.To, m)
	}

	e.sends.Add(1)
	go func() {
		defer e.sends.Done()
		e.deliver(m)
	}()
}

// deliver is the blocking half of the send pipeline. A send whose
// conversation is hidden mid-flight still resolves against the store;
// eventual consistency over cancellation.
func (e *Engine) deliver(m *message.Message) {
	req, err := transport.NewRequest(m)
	if err != nil {
		e.log.Errorf("encode message %s: %v", m.UUID, err)
		e.fail(m)
		return
	}

	var resp transport.Response
	err = e.policy.Do(e.ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.trans.Send(ctx, EventSend, req)
		return callErr
	})
	if err != nil {
		e.log.Warnf("send %s failed: %v", m.UUID, err)
		e.fail(m)
		return
	}

	var ack message.Ack
	if err := json.Unmarshal(resp.Body, &ack); err != nil {
		e.log.Errorf("decode ack for %s: %v", m.UUID, err)
		e.fail(m)
		return
	}

	if !e.store.ResolveDelivery(m.To, m.UUID, ack.SeqID, ack.CreatedAt) {
		// System sends bypass the optimistic insert; resolve the object
		// callers hold directly.
		m.SeqID = &ack.SeqID
		m.CreatedAt = &ack.CreatedAt
		m.Delivery = message.DeliverySynced
	}
	if !m.IsSystem() && e.store.Get(m.To) != nil {
		e.store.SetInteractionState(m.To, session.InteractionReplied)
		e.bus.Publish(dispatch.EventInteractionChanged, m.To, session.InteractionReplied)
	}
	e.bus.Publish(dispatch.EventMessageResolved, m.To, m)
}

func (e *Engine) fail(m *message.Message) {
	if e.store.FailDelivery(m.To, m.UUID) {
		e.bus.Publish(dispatch.EventMessageResolved, m.To, m)
		return
	}
	// Not in the store (system send); mark the object directly.
	sentinel := message.SeqSentinel
	m.SeqID = &sentinel
	m.Delivery = message.DeliveryFailed
}

// --- focus management ---

// Focused returns the conversation the operator is looking at, 0 for none.
func (e *Engine) Focused() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

// SelectSession focuses a conversation. An unread session flips to
// read-unreplied; the badge clears. Passing 0 clears focus.
func (e *Engine) SelectSession(userID int64) {
	if userID != 0 {
		if sess := e.store.Get(userID); sess != nil {
			if sess.Interaction == session.InteractionUnread {
				e.store.SetInteractionState(userID, session.InteractionReadUnreplied)
				e.bus.Publish(dispatch.EventInteractionChanged, userID, session.InteractionReadUnreplied)
			}
			e.store.ClearUnreadBadge(userID)
		}
	}
	e.mu.Lock()
	e.focused = userID
	e.mu.Unlock()
	e.bus.Publish(dispatch.EventFocusChanged, userID, nil)
}

// HideFocusedAndReassign hides the focused session and moves focus to the
// longest-waiting visible conversation.
func (e *Engine) HideFocusedAndReassign() {
	userID := e.Focused()
	if userID == 0 {
		return
	}
	e.store.SetHidden(userID, true)
	e.reassignFocus(userID)
}

func (e *Engine) reassignFocus(exclude int64) {
	next, ok := e.store.NextFocus(exclude)
	if !ok {
		next = 0
	}
	e.SelectSession(next)
}
