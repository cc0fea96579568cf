package message

import (
	"math"
	"time"
)

// SeqSentinel sorts a message last within its conversation. Assigned to
// messages whose send failed after retry exhaustion.
const SeqSentinel = int64(math.MaxInt64)

type TextContent struct {
	Text string `json:"text"`
}

type ImageContent struct {
	MediaID string `json:"mediaId"`
	URL     string `json:"picUrl"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type FileContent struct {
	MediaID  string `json:"mediaId"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size,omitempty"`
}

// Content is a tagged variant; exactly one payload is populated for chat
// messages. System messages carry a SysCode plus a serialized payload in Text.
type Content struct {
	Type    ContentType   `json:"contentType"`
	SysCode SysCode       `json:"sysCode,omitempty"`
	Text    *TextContent  `json:"textContent,omitempty"`
	Image   *ImageContent `json:"photoContent,omitempty"`
	File    *FileContent  `json:"attachment,omitempty"`
}

// Message is one chat message or system event.
//
// UUID is the client-generated idempotency key (8 chars). SeqID and CreatedAt
// are assigned by the server and absent until the ack arrives.
type Message struct {
	UUID       string        `json:"uuid"`
	SeqID      *int64        `json:"seqId,omitempty"`
	From       int64         `json:"from,omitempty"`
	To         int64         `json:"to,omitempty"`
	AuthorKind AuthorKind    `json:"creatorType"`
	Content    Content       `json:"content"`
	NickName   string        `json:"nickName,omitempty"`
	CreatedAt  *time.Time    `json:"createdAt,omitempty"`
	Delivery   DeliveryState `json:"-"`
}

// EffectiveSeq treats an unassigned sequence as maximal so pending and failed
// messages sort last in a conversation.
func (m *Message) EffectiveSeq() int64 {
	if m.SeqID == nil {
		return SeqSentinel
	}
	return *m.SeqID
}

// IsSystem reports whether the message is a system event rather than a chat
// message.
func (m *Message) IsSystem() bool {
	return m.AuthorKind == AuthorSystem
}

// Update is the envelope pushed by the server for each new message. PTS is the
// server global watermark used for gap detection.
type Update struct {
	Message *Message `json:"message"`
	PTS     int64    `json:"pts,omitempty"`
}

// Ack is the server response body to a msg/send request.
type Ack struct {
	SeqID     int64     `json:"seqId"`
	CreatedAt time.Time `json:"createdAt"`
}
