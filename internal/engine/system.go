package engine

import (
	"encoding/json"
	"errors"

	"agent-console/internal/codec"
	"agent-console/internal/dispatch"
	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
	console_errors "agent-console/pkg/errors"
)

// runSystem applies the side effects of one inbound system message. Unknown
// sysCodes decode to nil and fall through silently.
func (e *Engine) runSystem(m *message.Message) {
	payload, err := codec.DecodeSystem(m)
	if err != nil {
		e.log.Errorf("system message %s: %v", m.UUID, err)
		return
	}

	switch p := payload.(type) {
	case *customer.Status:
		e.store.UpdateCustomerStatus(p)
		e.bus.Publish(dispatch.EventPresenceChanged, p.UserID, p)
	case *conversation.Conversation:
		e.upsertConversation(p)
	case *conversation.TransferRequest:
		e.bus.Publish(dispatch.EventTransferPrompt, p.UserID, p)
	case *conversation.TransferResponse:
		e.finishTransfer(p)
	}
}

// upsertConversation installs conversation metadata into the store, fetching
// the customer profile when the session doesn't hold one yet. A failed profile
// lookup still installs the conversation; the profile fills in later.
func (e *Engine) upsertConversation(conv *conversation.Conversation) {
	var cust *customer.Customer
	if sess := e.store.Get(conv.UserID); sess == nil || sess.Customer == nil {
		var err error
		cust, err = e.lookup.CustomerByUserID(e.ctx, conv.UserID)
		if err != nil {
			e.log.Warnf("customer lookup for %d failed: %v", conv.UserID, err)
			cust = nil
		}
	}
	e.store.UpsertConversation(*conv, cust)
	e.bus.Publish(dispatch.EventSessionUpserted, conv.UserID, conv)
}

// --- transfer coordination ---

// SendTransferRequest asks another staff member to take over a conversation.
// The query is remembered until the counterpart's response arrives.
func (e *Engine) SendTransferRequest(q conversation.TransferQuery) error {
	if q.UserID == 0 || q.ToStaffID == 0 {
		return console_errors.ErrInvalidInput
	}
	m, err := codec.NewSystem(q.ToStaffID, message.SysTransferRequest, conversation.TransferRequest{
		UserID:      q.UserID,
		FromStaffID: e.staff.StaffID,
		ToStaffID:   q.ToStaffID,
		Remarks:     q.Remarks,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.pendingTransfers[q.UserID] = q
	e.mu.Unlock()

	e.dispatchSend(m)
	return nil
}

// RespondTransfer answers a transfer request from another staff member.
func (e *Engine) RespondTransfer(resp conversation.TransferResponse) error {
	if resp.FromStaffID == 0 {
		return console_errors.ErrInvalidInput
	}
	m, err := codec.NewSystem(resp.FromStaffID, message.SysTransferResponse, conversation.TransferResponse{
		UserID:      resp.UserID,
		FromStaffID: resp.FromStaffID,
		Accept:      resp.Accept,
		Reason:      resp.Reason,
	})
	if err != nil {
		return err
	}
	e.dispatchSend(m)
	return nil
}

// finishTransfer handles the counterpart's answer to a transfer this operator
// initiated. On accept the backend mutation runs; on reject the pending query
// is dropped and the rejection surfaces to the operator.
func (e *Engine) finishTransfer(resp *conversation.TransferResponse) {
	e.mu.Lock()
	query, ok := e.pendingTransfers[resp.UserID]
	delete(e.pendingTransfers, resp.UserID)
	e.mu.Unlock()

	if !ok {
		e.log.Warnf("transfer response for %d without pending query", resp.UserID)
		return
	}

	if !resp.Accept {
		e.bus.Publish(dispatch.EventTransferRejected, resp.UserID, resp)
		return
	}

	conv, err := e.lookup.TransferTo(e.ctx, query)
	if err != nil {
		e.log.Errorf("transfer mutation for %d: %v", resp.UserID, err)
		e.bus.Publish(dispatch.EventTransferRejected, resp.UserID, &conversation.TransferResponse{
			UserID: resp.UserID,
			Reason: err.Error(),
		})
		return
	}
	if conv == nil {
		e.bus.Publish(dispatch.EventTransferRejected, resp.UserID, &conversation.TransferResponse{
			UserID: resp.UserID,
			Reason: console_errors.ErrTransferNoStaff.Error(),
		})
		return
	}

	// Refresh the metadata so the new owner shows up, then drop the session
	// from this operator's visible list.
	if fresh, err := e.lookup.ConversationByID(e.ctx, conv.ID); err == nil && fresh != nil {
		conv = fresh
	}
	e.upsertConversation(conv)
	e.store.SetHidden(resp.UserID, true)
	if e.Focused() == resp.UserID {
		e.reassignFocus(resp.UserID)
	}
}

// decodeAssignedConversation parses a conv/assign payload. An assignment
// without a counterpart is useless and rejected.
func decodeAssignedConversation(raw json.RawMessage) (*conversation.Conversation, error) {
	var conv conversation.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, err
	}
	if conv.UserID == 0 {
		return nil, errors.New("assignment without counterpart")
	}
	return &conv, nil
}
