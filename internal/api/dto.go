package api

import (
	"time"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
	"agent-console/internal/domain/session"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

type SendTextRequest struct {
	Text string `json:"text" binding:"required"`
}

type SendImageRequest struct {
	message.ImageContent
}

type SendFileRequest struct {
	message.FileContent
}

type ResendRequest struct {
	UUID string `json:"uuid" binding:"required"`
}

type PinRequest struct {
	Pinned bool `json:"pinned"`
}

type TransferRequestBody struct {
	UserID    int64  `json:"userId" binding:"required"`
	ToStaffID int64  `json:"toStaffId" binding:"required"`
	Remarks   string `json:"remarks"`
}

type TransferResponseBody struct {
	UserID      int64  `json:"userId" binding:"required"`
	FromStaffID int64  `json:"fromStaffId" binding:"required"`
	Accept      bool   `json:"accept"`
	Reason      string `json:"reason"`
}

// SessionView is the list entry the rendering layer consumes: conversation
// metadata plus the derived ordering and badge state. Messages are fetched
// separately.
type SessionView struct {
	UserID          int64                     `json:"userId"`
	Conversation    conversation.Conversation `json:"conversation"`
	Customer        *customer.Customer        `json:"customer,omitempty"`
	LastMessage     *message.Message          `json:"lastMessage,omitempty"`
	LastMessageTime time.Time                 `json:"lastMessageTime"`
	Pinned          bool                      `json:"pinned"`
	Hidden          bool                      `json:"hidden"`
	Interaction     string                    `json:"interaction"`
	UnreadBadge     int                       `json:"unreadBadge"`
	Focused         bool                      `json:"focused"`
}

func FromSession(sess *session.Session, focused int64) SessionView {
	return SessionView{
		UserID:          sess.UserID(),
		Conversation:    sess.Conversation,
		Customer:        sess.Customer,
		LastMessage:     sess.LastMessage,
		LastMessageTime: sess.LastMessageTime,
		Pinned:          sess.Pinned,
		Hidden:          sess.Hidden,
		Interaction:     sess.Interaction.String(),
		UnreadBadge:     sess.UnreadBadge,
		Focused:         sess.UserID() == focused,
	}
}

func FromSessionSlice(sessions []*session.Session, focused int64) []SessionView {
	out := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, FromSession(sess, focused))
	}
	return out
}

// MessageView adds the delivery state, which the message itself keeps out of
// its wire form.
type MessageView struct {
	*message.Message
	Delivery string `json:"delivery"`
}

func FromMessageSlice(msgs []*message.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageView{Message: m, Delivery: m.Delivery.String()})
	}
	return out
}

type AttachmentResponse struct {
	MediaID string `json:"mediaId"`
	URL     string `json:"url"`
}
