package engine

import (
	"bytes"
	"encoding/json"

	"agent-console/internal/dispatch"
	"agent-console/internal/domain/message"
	"agent-console/internal/domain/session"
	"agent-console/internal/transport"
)

// handleReceive serves msg/receive pushes from the server. The ack goes out
// before processing: the server only needs delivery confirmation, and a slow
// backfill must not stall its push queue.
func (e *Engine) handleReceive(req transport.Request, reply func(transport.Response)) {
	if len(req.Body) == 0 || bytes.Equal(req.Body, []byte("null")) {
		reply(transport.BadRequest(req.Header, "request empty"))
		return
	}

	var upd message.Update
	if err := json.Unmarshal(req.Body, &upd); err != nil || upd.Message == nil {
		reply(transport.BadRequest(req.Header, "request empty"))
		return
	}
	reply(transport.OK(req.Header))

	e.processUpdate(upd)
}

// handleAssign serves conv/assign pushes: the server handing this operator a
// new or updated conversation.
func (e *Engine) handleAssign(req transport.Request, reply func(transport.Response)) {
	if len(req.Body) == 0 || bytes.Equal(req.Body, []byte("null")) {
		reply(transport.BadRequest(req.Header, "request empty"))
		return
	}
	var body struct {
		Conversation json.RawMessage `json:"conversation"`
	}
	// The payload may be the conversation itself or wrapped under a key.
	raw := req.Body
	if err := json.Unmarshal(req.Body, &body); err == nil && len(body.Conversation) > 0 {
		raw = body.Conversation
	}

	conv, err := decodeAssignedConversation(raw)
	if err != nil {
		reply(transport.BadRequest(req.Header, "request empty"))
		return
	}
	reply(transport.OK(req.Header))

	e.upsertConversation(conv)
}

// processUpdate reconciles one pushed update against the sync watermark. A pts
// ahead of the cursor means pushes were missed; those are backfilled and
// applied in sequence order before the triggering message.
func (e *Engine) processUpdate(upd message.Update) {
	local := e.cursor.Load()

	backfillOK := true
	if upd.PTS > 0 && local > 0 && upd.PTS > local {
		missed, err := e.lookup.SyncMessages(e.ctx, e.staff.StaffID, local, upd.PTS)
		if err != nil {
			// The gap stays open: the trigger still merges, but the cursor
			// holds so the next push retries the same range.
			e.log.Warnf("backfill (%d, %d] failed: %v", local, upd.PTS, err)
			backfillOK = false
		} else {
			for _, m := range missed {
				if m.UUID == upd.Message.UUID {
					continue // trigger included in the page, applied below
				}
				e.apply(m)
			}
		}
	}

	e.apply(upd.Message)

	if backfillOK {
		if seq := upd.Message.EffectiveSeq(); seq != message.SeqSentinel {
			e.cursor.Advance(seq)
		}
		if upd.PTS > 0 {
			e.cursor.Advance(upd.PTS)
		}
	}
}

// apply routes one inbound message: system messages run their side effects,
// chat messages merge into the owning session.
func (e *Engine) apply(m *message.Message) {
	if m.IsSystem() {
		e.runSystem(m)
		return
	}

	owner := m.To
	if m.AuthorKind == message.AuthorCustomer {
		owner = m.From
	}

	if e.store.Get(owner) == nil {
		e.hydrateSession(owner)
	}

	wasHidden := false
	if sess := e.store.Get(owner); sess != nil {
		wasHidden = sess.Hidden
	}

	if m.Delivery == message.DeliveryPending {
		m.Delivery = message.DeliverySynced
	}
	if !e.store.MergeMessage(owner, m) {
		return // re-delivery, already merged
	}
	e.bus.Publish(dispatch.EventMessageMerged, owner, m)

	if m.AuthorKind == message.AuthorCustomer {
		if e.Focused() == owner {
			e.store.SetInteractionState(owner, session.InteractionReadUnreplied)
			e.bus.Publish(dispatch.EventInteractionChanged, owner, session.InteractionReadUnreplied)
		} else {
			e.store.IncrementUnreadBadge(owner)
			e.store.SetInteractionState(owner, session.InteractionUnread)
			e.bus.Publish(dispatch.EventBadgeIncremented, owner, nil)
			e.bus.Publish(dispatch.EventInteractionChanged, owner, session.InteractionUnread)
		}
	}

	if wasHidden {
		e.store.SetHidden(owner, false)
		e.bus.Publish(dispatch.EventSessionResurfaced, owner, nil)
	}
}

// hydrateSession fetches conversation and profile for a counterpart seen for
// the first time. On lookup failure a skeleton session holds the messages
// until a later assignment fills in the metadata.
func (e *Engine) hydrateSession(userID int64) {
	conv, err := e.lookup.ConversationByUserID(e.ctx, userID)
	if err != nil || conv == nil {
		e.log.Warnf("conversation lookup for %d failed: %v", userID, err)
		e.store.EnsureSession(userID)
		e.bus.Publish(dispatch.EventSessionUpserted, userID, nil)
		return
	}
	e.upsertConversation(conv)
}
