// Package lookup is the console's client to the backend query API: customer
// and conversation metadata used to hydrate sessions, the transfer mutation,
// and the message backfill query the gap-recovery path depends on.
package lookup

import (
	"context"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
)

type Service interface {
	CustomerByUserID(ctx context.Context, userID int64) (*customer.Customer, error)
	ConversationByUserID(ctx context.Context, userID int64) (*conversation.Conversation, error)
	ConversationByID(ctx context.Context, id int64) (*conversation.Conversation, error)

	// TransferTo runs the backend transfer mutation. A nil conversation with a
	// nil error means no staff was online or idle to take the conversation.
	TransferTo(ctx context.Context, query conversation.TransferQuery) (*conversation.Conversation, error)

	// SyncMessages returns the ordered page of messages with sequence ids in
	// (cursor, end], the backfill query for pts gap recovery. Single attempt;
	// the caller re-triggers on the next inbound event if it fails.
	SyncMessages(ctx context.Context, staffID, cursor, end int64) ([]*message.Message, error)
}
