// Package codec builds outbound message envelopes and decodes inbound system
// events. Outbound messages get a fresh 8-character uuid, the idempotency key
// the merge step relies on.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
)

func shortUUID() string {
	return uuid.New().String()[:8]
}

func newOutbound(to int64, kind message.AuthorKind, content message.Content) *message.Message {
	return &message.Message{
		UUID:       shortUUID(),
		To:         to,
		AuthorKind: kind,
		Content:    content,
		Delivery:   message.DeliveryPending,
	}
}

// NewText builds a staff text message to a customer.
func NewText(to int64, text string) *message.Message {
	return newOutbound(to, message.AuthorStaff, message.Content{
		Type: message.ContentText,
		Text: &message.TextContent{Text: text},
	})
}

// NewImage builds a staff image message to a customer.
func NewImage(to int64, img message.ImageContent) *message.Message {
	return newOutbound(to, message.AuthorStaff, message.Content{
		Type:  message.ContentImage,
		Image: &img,
	})
}

// NewFile builds a staff file message to a customer.
func NewFile(to int64, file message.FileContent) *message.Message {
	return newOutbound(to, message.AuthorStaff, message.Content{
		Type: message.ContentFile,
		File: &file,
	})
}

// NewSystem builds a system message whose payload is serialized into the text
// content, tagged by code. Used for transfer coordination.
func NewSystem(to int64, code message.SysCode, payload interface{}) (*message.Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return newOutbound(to, message.AuthorSystem, message.Content{
		Type:    message.ContentText,
		SysCode: code,
		Text:    &message.TextContent{Text: string(raw)},
	}), nil
}

// sysDecoders maps each handled SysCode to its payload decoder. Codes absent
// from the table are ignored at decode time, which keeps the console forward
// compatible with new server events.
var sysDecoders = map[message.SysCode]func(text string) (interface{}, error){
	message.SysOnlineStatusChanged: func(text string) (interface{}, error) {
		var status customer.Status
		if err := json.Unmarshal([]byte(text), &status); err != nil {
			return nil, err
		}
		return &status, nil
	},
	message.SysConvEnd:    decodeConversation,
	message.SysConvUpdate: decodeConversation,
	message.SysTransferRequest: func(text string) (interface{}, error) {
		var req conversation.TransferRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return nil, err
		}
		return &req, nil
	},
	message.SysTransferResponse: func(text string) (interface{}, error) {
		var resp conversation.TransferResponse
		if err := json.Unmarshal([]byte(text), &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	},
}

func decodeConversation(text string) (interface{}, error) {
	var conv conversation.Conversation
	if err := json.Unmarshal([]byte(text), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DecodeSystem decodes the payload of a system message according to its
// sysCode. Unrecognized codes return (nil, nil): a deliberate no-op, not an
// error. A recognized code with an unparsable payload is an error.
func DecodeSystem(m *message.Message) (interface{}, error) {
	decode, ok := sysDecoders[m.Content.SysCode]
	if !ok {
		return nil, nil
	}
	if m.Content.Text == nil || m.Content.Text.Text == "" {
		return nil, nil
	}
	payload, err := decode(m.Content.Text.Text)
	if err != nil {
		return nil, fmt.Errorf("codec: decode %s payload: %w", m.Content.SysCode, err)
	}
	return payload, nil
}
