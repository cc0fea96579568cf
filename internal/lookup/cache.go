package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
)

// Cache key patterns:
// - customer:{user_id} - profile cache, TTL refresh on write
// - conversation:user:{user_id} - last conversation per counterpart
// - conversation:{conv_id} - conversation metadata by id

// CachedService wraps a Service with a Redis read-through cache for the
// profile and conversation lookups. Backfill and the transfer mutation always
// go to the backend.
type CachedService struct {
	next   Service
	client *goredis.Client
	ttl    time.Duration
}

func NewCachedService(next Service, client *goredis.Client, ttl time.Duration) *CachedService {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &CachedService{next: next, client: client, ttl: ttl}
}

func (c *CachedService) CustomerByUserID(ctx context.Context, userID int64) (*customer.Customer, error) {
	key := fmt.Sprintf("customer:%d", userID)
	var cached customer.Customer
	if c.getJSON(ctx, key, &cached) {
		return &cached, nil
	}

	cust, err := c.next.CustomerByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, cust)
	return cust, nil
}

func (c *CachedService) ConversationByUserID(ctx context.Context, userID int64) (*conversation.Conversation, error) {
	key := fmt.Sprintf("conversation:user:%d", userID)
	var cached conversation.Conversation
	if c.getJSON(ctx, key, &cached) {
		return &cached, nil
	}

	conv, err := c.next.ConversationByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, conv)
	c.setJSON(ctx, fmt.Sprintf("conversation:%d", conv.ID), conv)
	return conv, nil
}

func (c *CachedService) ConversationByID(ctx context.Context, id int64) (*conversation.Conversation, error) {
	key := fmt.Sprintf("conversation:%d", id)
	var cached conversation.Conversation
	if c.getJSON(ctx, key, &cached) {
		return &cached, nil
	}

	conv, err := c.next.ConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, conv)
	return conv, nil
}

// TransferTo invalidates the cached conversation entries for the counterpart;
// ownership just changed server-side.
func (c *CachedService) TransferTo(ctx context.Context, query conversation.TransferQuery) (*conversation.Conversation, error) {
	conv, err := c.next.TransferTo(ctx, query)
	if err != nil {
		return nil, err
	}
	keys := []string{fmt.Sprintf("conversation:user:%d", query.UserID)}
	if conv != nil {
		keys = append(keys, fmt.Sprintf("conversation:%d", conv.ID))
	}
	_ = c.client.Del(ctx, keys...).Err()
	return conv, nil
}

func (c *CachedService) SyncMessages(ctx context.Context, staffID, cursor, end int64) ([]*message.Message, error) {
	return c.next.SyncMessages(ctx, staffID, cursor, end)
}

func (c *CachedService) getJSON(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false // miss or redis unavailable, fall through to backend
	}
	return json.Unmarshal([]byte(data), out) == nil
}

func (c *CachedService) setJSON(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, data, c.ttl).Err()
}
