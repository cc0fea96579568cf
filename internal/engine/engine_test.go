package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"agent-console/internal/auth"
	"agent-console/internal/dispatch"
	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
	"agent-console/internal/domain/session"
	"agent-console/internal/retry"
	"agent-console/internal/store"
	"agent-console/internal/transport"
	console_errors "agent-console/pkg/errors"
	"agent-console/pkg/logger"
)

const testStaffID int64 = 1000

// fakeTransport records Send calls and answers from a programmable respond
// func.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []string
	respond func(event string, req transport.Request) (transport.Response, error)
}

func (f *fakeTransport) Send(ctx context.Context, event string, req transport.Request) (transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, event)
	f.mu.Unlock()
	return f.respond(event, req)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ackTransport(startSeq int64) *fakeTransport {
	var mu sync.Mutex
	seq := startSeq
	return &fakeTransport{respond: func(event string, req transport.Request) (transport.Response, error) {
		mu.Lock()
		seq++
		s := seq
		mu.Unlock()
		return transport.NewResponse(req.Header, transport.CodeOK,
			message.Ack{SeqID: s, CreatedAt: time.Now()}), nil
	}}
}

func timeoutTransport() *fakeTransport {
	return &fakeTransport{respond: func(event string, req transport.Request) (transport.Response, error) {
		return transport.Response{}, console_errors.ErrTimeout
	}}
}

// fakeLookup is an in-memory backend.
type fakeLookup struct {
	mu            sync.Mutex
	customers     map[int64]*customer.Customer
	conversations map[int64]*conversation.Conversation
	syncCalls     [][2]int64
	syncPage      []*message.Message
	syncErr       error
	transferConv  *conversation.Conversation
	transferErr   error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		customers:     make(map[int64]*customer.Customer),
		conversations: make(map[int64]*conversation.Conversation),
	}
}

func (f *fakeLookup) CustomerByUserID(ctx context.Context, userID int64) (*customer.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.customers[userID]; ok {
		return c, nil
	}
	return nil, console_errors.ErrNotFound
}

func (f *fakeLookup) ConversationByUserID(ctx context.Context, userID int64) (*conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[userID]; ok {
		return c, nil
	}
	return nil, console_errors.ErrNotFound
}

func (f *fakeLookup) ConversationByID(ctx context.Context, id int64) (*conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, console_errors.ErrNotFound
}

func (f *fakeLookup) TransferTo(ctx context.Context, query conversation.TransferQuery) (*conversation.Conversation, error) {
	return f.transferConv, f.transferErr
}

func (f *fakeLookup) SyncMessages(ctx context.Context, staffID, cursor, end int64) ([]*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls = append(f.syncCalls, [2]int64{cursor, end})
	return f.syncPage, f.syncErr
}

func newTestEngine(trans Transport, lk *fakeLookup) *Engine {
	return New(context.Background(),
		auth.StaffConfig{StaffID: testStaffID, NickName: "op", OnlineStatus: "ONLINE"},
		trans, retry.NewPolicy(3, time.Millisecond),
		store.New(), lk, dispatch.NewBus(), logger.NewNop())
}

func inboundText(uuid string, from, seq int64, at time.Time) *message.Message {
	return &message.Message{
		UUID:       uuid,
		SeqID:      &seq,
		From:       from,
		To:         testStaffID,
		AuthorKind: message.AuthorCustomer,
		Content:    message.Content{Type: message.ContentText, Text: &message.TextContent{Text: uuid}},
		CreatedAt:  &at,
	}
}

func drainTypes(ch <-chan dispatch.Event) []string {
	var out []string
	for {
		select {
		case e := <-ch:
			out = append(out, e.Type)
		default:
			return out
		}
	}
}

// --- cursor ---

func TestCursorMonotonic(t *testing.T) {
	c := &Cursor{}
	c.Advance(10)
	if got := c.Advance(5); got != 10 {
		t.Errorf("Advance(5) after 10 = %d, want 10", got)
	}
	if got := c.Advance(20); got != 20 {
		t.Errorf("Advance(20) = %d, want 20", got)
	}
	if c.Load() != 20 {
		t.Errorf("Load = %d, want 20", c.Load())
	}
}

// --- inbound ---

func TestProcessUpdateMergesAndAdvancesCursor(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	lk.customers[7] = &customer.Customer{UserID: 7, Name: "Ada"}
	e := newTestEngine(ackTransport(0), lk)

	m := inboundText("in111111", 7, 12, time.Now())
	e.processUpdate(message.Update{Message: m, PTS: 12})

	sess := e.store.Get(7)
	if sess == nil {
		t.Fatal("session must exist after inbound message")
	}
	if sess.Customer == nil || sess.Customer.Name != "Ada" {
		t.Errorf("customer = %+v, want hydrated profile", sess.Customer)
	}
	if len(sess.Messages) != 1 {
		t.Errorf("message count = %d, want 1", len(sess.Messages))
	}
	if e.CursorValue() != 12 {
		t.Errorf("cursor = %d, want 12", e.CursorValue())
	}
	if len(lk.syncCalls) != 0 {
		t.Errorf("no backfill expected from a zero cursor, got %v", lk.syncCalls)
	}
}

func TestProcessUpdateBackfillsGap(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	at := time.Now()
	for i := int64(101); i <= 104; i++ {
		lk.syncPage = append(lk.syncPage, inboundText(fmt.Sprintf("bf%06d", i), 7, i, at))
	}
	e := newTestEngine(ackTransport(0), lk)
	e.cursor.Advance(100)

	ch, cancel := e.bus.Subscribe(64)
	defer cancel()

	trigger := inboundText("in105105", 7, 105, at)
	e.processUpdate(message.Update{Message: trigger, PTS: 105})

	if len(lk.syncCalls) != 1 || lk.syncCalls[0] != [2]int64{100, 105} {
		t.Fatalf("backfill calls = %v, want one (100, 105]", lk.syncCalls)
	}

	msgs := e.store.Messages(7)
	if len(msgs) != 5 {
		t.Fatalf("message count = %d, want 5 (4 backfilled + trigger)", len(msgs))
	}
	for i, m := range msgs {
		if want := int64(101 + i); m.EffectiveSeq() != want {
			t.Errorf("msgs[%d].seq = %d, want %d", i, m.EffectiveSeq(), want)
		}
	}
	if e.CursorValue() != 105 {
		t.Errorf("cursor = %d, want 105", e.CursorValue())
	}

	// The trigger must merge after the backfilled page.
	var mergeCount int
	for _, typ := range drainTypes(ch) {
		if typ == dispatch.EventMessageMerged {
			mergeCount++
		}
	}
	if mergeCount != 5 {
		t.Errorf("merge events = %d, want 5", mergeCount)
	}
}

func TestProcessUpdateBackfillFailureHoldsCursor(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	lk.syncErr = errors.New("backend down")
	e := newTestEngine(ackTransport(0), lk)
	e.cursor.Advance(100)

	trigger := inboundText("in105105", 7, 105, time.Now())
	e.processUpdate(message.Update{Message: trigger, PTS: 105})

	if e.store.Get(7) == nil || len(e.store.Get(7).Messages) != 1 {
		t.Fatal("trigger message must still merge when backfill fails")
	}
	if e.CursorValue() != 100 {
		t.Errorf("cursor = %d, want 100: a failed backfill must not advance it", e.CursorValue())
	}

	// The next push retries the same gap.
	lk.syncErr = nil
	next := inboundText("in106106", 7, 106, time.Now())
	e.processUpdate(message.Update{Message: next, PTS: 106})
	if len(lk.syncCalls) != 2 || lk.syncCalls[1] != [2]int64{100, 106} {
		t.Errorf("retry backfill calls = %v, want second (100, 106]", lk.syncCalls)
	}
}

func TestProcessUpdateDuplicateIsNoop(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)

	at := time.Now()
	e.processUpdate(message.Update{Message: inboundText("dup11111", 7, 1, at), PTS: 1})
	e.processUpdate(message.Update{Message: inboundText("dup11111", 7, 1, at), PTS: 1})

	sess := e.store.Get(7)
	if len(sess.Messages) != 1 {
		t.Errorf("message count = %d, want 1", len(sess.Messages))
	}
	if sess.UnreadBadge != 1 {
		t.Errorf("badge = %d, want 1: a re-delivery must not double count", sess.UnreadBadge)
	}
}

func TestInboundBadgeAndInteraction(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	lk.conversations[8] = &conversation.Conversation{ID: 80, UserID: 8, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)

	e.processUpdate(message.Update{Message: inboundText("a1111111", 7, 1, time.Now()), PTS: 1})
	e.SelectSession(7)

	// Focused session: no badge, read-unreplied.
	e.processUpdate(message.Update{Message: inboundText("a2222222", 7, 2, time.Now()), PTS: 2})
	sess := e.store.Get(7)
	if sess.UnreadBadge != 0 {
		t.Errorf("focused badge = %d, want 0", sess.UnreadBadge)
	}
	if sess.Interaction != session.InteractionReadUnreplied {
		t.Errorf("focused interaction = %v, want READ_UNREPLIED", sess.Interaction)
	}

	// Unfocused session: badge increments, unread.
	e.processUpdate(message.Update{Message: inboundText("b1111111", 8, 3, time.Now()), PTS: 3})
	other := e.store.Get(8)
	if other.UnreadBadge != 1 {
		t.Errorf("unfocused badge = %d, want 1", other.UnreadBadge)
	}
	if other.Interaction != session.InteractionUnread {
		t.Errorf("unfocused interaction = %v, want UNREAD", other.Interaction)
	}
}

func TestInboundResurfacesHiddenSession(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)

	e.processUpdate(message.Update{Message: inboundText("a1111111", 7, 1, time.Now()), PTS: 1})
	e.store.SetHidden(7, true)

	ch, cancel := e.bus.Subscribe(16)
	defer cancel()

	e.processUpdate(message.Update{Message: inboundText("a2222222", 7, 2, time.Now()), PTS: 2})
	if e.store.Get(7).Hidden {
		t.Error("inbound message must unhide the session")
	}
	found := false
	for _, typ := range drainTypes(ch) {
		if typ == dispatch.EventSessionResurfaced {
			found = true
		}
	}
	if !found {
		t.Error("resurfacing must publish session.resurfaced")
	}
}

func TestInboundUnknownCounterpartFallsBackToSkeleton(t *testing.T) {
	lk := newFakeLookup() // no conversations registered
	e := newTestEngine(ackTransport(0), lk)

	e.processUpdate(message.Update{Message: inboundText("a1111111", 99, 1, time.Now()), PTS: 1})

	sess := e.store.Get(99)
	if sess == nil {
		t.Fatal("a failed lookup must still produce a skeleton session")
	}
	if len(sess.Messages) != 1 {
		t.Errorf("message count = %d, want 1", len(sess.Messages))
	}
	if e.CursorValue() != 1 {
		t.Errorf("cursor = %d, want 1: lookup failure must not stall the cursor", e.CursorValue())
	}
}

// --- outbound ---

func TestSendTextResolvesOnAck(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(41), lk)
	e.processUpdate(message.Update{Message: inboundText("in111111", 7, 1, time.Now()), PTS: 1})

	m := e.SendText(7, "hello")
	e.Close()

	if m.Delivery != message.DeliverySynced {
		t.Fatalf("delivery = %v, want synced", m.Delivery)
	}
	if m.EffectiveSeq() != 42 {
		t.Errorf("seq = %d, want 42", m.EffectiveSeq())
	}
	sess := e.store.Get(7)
	if sess.Interaction != session.InteractionReplied {
		t.Errorf("interaction = %v, want REPLIED after ack", sess.Interaction)
	}
	if sess.Messages[m.UUID] != m {
		t.Error("optimistic insert and resolved message must be one object")
	}
}

func TestSendTextFailsAfterRetryExhaustion(t *testing.T) {
	lk := newFakeLookup()
	trans := timeoutTransport()
	e := newTestEngine(trans, lk)

	m := e.SendText(7, "hello")
	e.Close()

	if got := trans.callCount(); got != 3 {
		t.Errorf("transport calls = %d, want 3", got)
	}
	if m.Delivery != message.DeliveryFailed {
		t.Errorf("delivery = %v, want failed", m.Delivery)
	}
	if m.EffectiveSeq() != message.SeqSentinel {
		t.Errorf("seq = %d, want sentinel so it sorts last", m.EffectiveSeq())
	}
}

func TestSendDoesNotRetryRejection(t *testing.T) {
	lk := newFakeLookup()
	trans := &fakeTransport{respond: func(event string, req transport.Request) (transport.Response, error) {
		return transport.Response{}, &transport.ResponseError{Code: transport.CodeBadRequest}
	}}
	e := newTestEngine(trans, lk)

	m := e.SendText(7, "hello")
	e.Close()

	if got := trans.callCount(); got != 1 {
		t.Errorf("transport calls = %d, want 1: server rejections must not retry", got)
	}
	if m.Delivery != message.DeliveryFailed {
		t.Errorf("delivery = %v, want failed", m.Delivery)
	}
}

func TestResendReusesUUID(t *testing.T) {
	lk := newFakeLookup()
	trans := timeoutTransport()
	e := newTestEngine(trans, lk)

	m := e.SendText(7, "hello")
	e.Close()
	if m.Delivery != message.DeliveryFailed {
		t.Fatalf("setup: delivery = %v, want failed", m.Delivery)
	}

	trans.respond = ackTransport(9).respond
	if err := e.ResendMessage(7, m.UUID); err != nil {
		t.Fatalf("ResendMessage: %v", err)
	}
	e.Close()

	if m.Delivery != message.DeliverySynced {
		t.Errorf("delivery = %v, want synced after resend", m.Delivery)
	}
	if len(e.store.Get(7).Messages) != 1 {
		t.Error("resend must not duplicate the message")
	}
}

func TestResendRejectsNonFailed(t *testing.T) {
	lk := newFakeLookup()
	e := newTestEngine(ackTransport(0), lk)

	m := e.SendText(7, "hello")
	e.Close()

	if err := e.ResendMessage(7, m.UUID); !errors.Is(err, console_errors.ErrNotFailed) {
		t.Errorf("ResendMessage on synced = %v, want ErrNotFailed", err)
	}
	if err := e.ResendMessage(7, "missing1"); !errors.Is(err, console_errors.ErrNotFailed) {
		t.Errorf("ResendMessage on unknown uuid = %v, want ErrNotFailed", err)
	}
}

// --- system events ---

func sysUpdate(t *testing.T, code message.SysCode, payload interface{}, seq int64) message.Update {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return message.Update{
		Message: &message.Message{
			UUID:       fmt.Sprintf("sys%05d", seq),
			SeqID:      &seq,
			To:         testStaffID,
			AuthorKind: message.AuthorSystem,
			Content: message.Content{
				Type:    message.ContentText,
				SysCode: code,
				Text:    &message.TextContent{Text: string(raw)},
			},
		},
		PTS: seq,
	}
}

func TestSystemPresenceChange(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)
	e.processUpdate(message.Update{Message: inboundText("in111111", 7, 1, time.Now()), PTS: 1})

	e.processUpdate(sysUpdate(t, message.SysOnlineStatusChanged,
		customer.Status{UserID: 7, OnlineStatus: customer.StatusAway}, 2))

	sess := e.store.Get(7)
	if sess.Customer == nil || sess.Customer.Status == nil ||
		sess.Customer.Status.OnlineStatus != customer.StatusAway {
		t.Errorf("customer status = %+v, want AWAY", sess.Customer)
	}
	if e.CursorValue() != 2 {
		t.Errorf("cursor = %d, want 2: system messages advance the cursor too", e.CursorValue())
	}
}

func TestSystemConversationEnd(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)
	e.processUpdate(message.Update{Message: inboundText("in111111", 7, 1, time.Now()), PTS: 1})

	ended := time.Now()
	e.processUpdate(sysUpdate(t, message.SysConvEnd,
		conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID, EndTime: &ended}, 2))

	sess := e.store.Get(7)
	if sess.Conversation.EndTime == nil {
		t.Error("conversation end must install the closed metadata")
	}
	if len(sess.Messages) != 1 {
		t.Error("conversation end must keep the transcript")
	}
}

func TestTransferRejectedResponse(t *testing.T) {
	lk := newFakeLookup()
	e := newTestEngine(ackTransport(0), lk)

	if err := e.SendTransferRequest(conversation.TransferQuery{UserID: 7, ToStaffID: 2000}); err != nil {
		t.Fatalf("SendTransferRequest: %v", err)
	}
	e.Close()

	ch, cancel := e.bus.Subscribe(16)
	defer cancel()

	e.processUpdate(sysUpdate(t, message.SysTransferResponse,
		conversation.TransferResponse{UserID: 7, FromStaffID: 2000, Accept: false, Reason: "busy"}, 5))

	found := false
	for _, typ := range drainTypes(ch) {
		if typ == dispatch.EventTransferRejected {
			found = true
		}
	}
	if !found {
		t.Error("a rejected transfer must publish transfer.rejected")
	}
	e.mu.Lock()
	pending := len(e.pendingTransfers)
	e.mu.Unlock()
	if pending != 0 {
		t.Error("the pending transfer entry must clear after the response")
	}
}

func TestTransferAcceptedNoStaffAvailable(t *testing.T) {
	lk := newFakeLookup() // TransferTo returns (nil, nil): nobody idle
	e := newTestEngine(ackTransport(0), lk)

	if err := e.SendTransferRequest(conversation.TransferQuery{UserID: 7, ToStaffID: 2000}); err != nil {
		t.Fatalf("SendTransferRequest: %v", err)
	}
	e.Close()

	ch, cancel := e.bus.Subscribe(16)
	defer cancel()

	e.processUpdate(sysUpdate(t, message.SysTransferResponse,
		conversation.TransferResponse{UserID: 7, FromStaffID: 2000, Accept: true}, 5))

	rejected := false
	for _, typ := range drainTypes(ch) {
		if typ == dispatch.EventTransferRejected {
			rejected = true
		}
	}
	if !rejected {
		t.Error("an accepted transfer with no staff available must surface as rejected")
	}
}

func TestTransferAcceptedHidesSession(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	lk.transferConv = &conversation.Conversation{ID: 70, UserID: 7, StaffID: 2000}
	e := newTestEngine(ackTransport(0), lk)
	e.processUpdate(message.Update{Message: inboundText("in111111", 7, 1, time.Now()), PTS: 1})
	e.SelectSession(7)

	if err := e.SendTransferRequest(conversation.TransferQuery{UserID: 7, ToStaffID: 2000}); err != nil {
		t.Fatalf("SendTransferRequest: %v", err)
	}
	e.Close()

	e.processUpdate(sysUpdate(t, message.SysTransferResponse,
		conversation.TransferResponse{UserID: 7, FromStaffID: 2000, Accept: true}, 5))

	sess := e.store.Get(7)
	if !sess.Hidden {
		t.Error("a completed transfer must hide the session")
	}
	if e.Focused() == 7 {
		t.Error("focus must move off the transferred session")
	}
}

// --- focus ---

func TestSelectSessionClearsBadgeAndUnread(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)

	e.processUpdate(message.Update{Message: inboundText("a1111111", 7, 1, time.Now()), PTS: 1})
	sess := e.store.Get(7)
	if sess.UnreadBadge != 1 || sess.Interaction != session.InteractionUnread {
		t.Fatalf("setup: badge=%d interaction=%v", sess.UnreadBadge, sess.Interaction)
	}

	e.SelectSession(7)
	if sess.UnreadBadge != 0 {
		t.Errorf("badge = %d, want 0 after focus", sess.UnreadBadge)
	}
	if sess.Interaction != session.InteractionReadUnreplied {
		t.Errorf("interaction = %v, want READ_UNREPLIED after focus", sess.Interaction)
	}
	if e.Focused() != 7 {
		t.Errorf("focused = %d, want 7", e.Focused())
	}
}

func TestHideFocusedReassignsToLongestWaiting(t *testing.T) {
	lk := newFakeLookup()
	for _, id := range []int64{10, 30, 5} {
		lk.conversations[id] = &conversation.Conversation{ID: id, UserID: id, StaffID: testStaffID}
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := newTestEngine(ackTransport(0), lk)
	e.processUpdate(message.Update{Message: inboundText("m1111111", 10, 1, base.Add(10*time.Minute)), PTS: 1})
	e.processUpdate(message.Update{Message: inboundText("m2222222", 30, 2, base.Add(30*time.Minute)), PTS: 2})
	e.processUpdate(message.Update{Message: inboundText("m3333333", 5, 3, base.Add(5*time.Minute)), PTS: 3})

	e.SelectSession(30)
	e.HideFocusedAndReassign()

	if !e.store.Get(30).Hidden {
		t.Error("the focused session must hide")
	}
	if e.Focused() != 5 {
		t.Errorf("focused = %d, want 5 (longest waiting)", e.Focused())
	}
}

func TestHideLastSessionClearsFocus(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)
	e.processUpdate(message.Update{Message: inboundText("a1111111", 7, 1, time.Now()), PTS: 1})

	e.SelectSession(7)
	e.HideFocusedAndReassign()

	if e.Focused() != 0 {
		t.Errorf("focused = %d, want 0 when nothing is left", e.Focused())
	}
}

// --- socket handlers ---

func TestHandleReceiveRejectsEmptyBody(t *testing.T) {
	e := newTestEngine(ackTransport(0), newFakeLookup())

	for _, body := range []string{"", "null", `{"message":null}`} {
		var got *transport.Response
		e.handleReceive(transport.Request{
			Header: transport.Header{MID: "m1"},
			Body:   json.RawMessage(body),
		}, func(resp transport.Response) { got = &resp })

		if got == nil {
			t.Fatalf("body %q: handler must reply", body)
		}
		if got.Code != transport.CodeBadRequest {
			t.Errorf("body %q: code = %d, want %d", body, got.Code, transport.CodeBadRequest)
		}
	}
}

func TestHandleReceiveAcksThenApplies(t *testing.T) {
	lk := newFakeLookup()
	lk.conversations[7] = &conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID}
	e := newTestEngine(ackTransport(0), lk)

	body, _ := json.Marshal(message.Update{Message: inboundText("in111111", 7, 1, time.Now()), PTS: 1})
	var got *transport.Response
	e.handleReceive(transport.Request{
		Header: transport.Header{MID: "m1"},
		Body:   body,
	}, func(resp transport.Response) { got = &resp })

	if got == nil || got.Code != transport.CodeOK {
		t.Fatalf("ack = %+v, want 200", got)
	}
	if e.store.Get(7) == nil {
		t.Error("the update must apply after the ack")
	}
}

func TestHandleAssignUpsertsConversation(t *testing.T) {
	lk := newFakeLookup()
	lk.customers[7] = &customer.Customer{UserID: 7, Name: "Ada"}
	e := newTestEngine(ackTransport(0), lk)

	body, _ := json.Marshal(conversation.Conversation{ID: 70, UserID: 7, StaffID: testStaffID})
	var got *transport.Response
	e.handleAssign(transport.Request{
		Header: transport.Header{MID: "m1"},
		Body:   body,
	}, func(resp transport.Response) { got = &resp })

	if got == nil || got.Code != transport.CodeOK {
		t.Fatalf("ack = %+v, want 200", got)
	}
	sess := e.store.Get(7)
	if sess == nil || sess.Conversation.ID != 70 {
		t.Fatalf("session = %+v, want assigned conversation", sess)
	}
	if sess.Customer == nil || sess.Customer.Name != "Ada" {
		t.Errorf("customer = %+v, want hydrated profile", sess.Customer)
	}
}

func TestHandleAssignRejectsEmptyBody(t *testing.T) {
	e := newTestEngine(ackTransport(0), newFakeLookup())

	var got *transport.Response
	e.handleAssign(transport.Request{
		Header: transport.Header{MID: "m1"},
		Body:   nil,
	}, func(resp transport.Response) { got = &resp })

	if got == nil || got.Code != transport.CodeBadRequest {
		t.Fatalf("ack = %+v, want 400", got)
	}
}
