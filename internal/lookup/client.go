package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/domain/customer"
	"agent-console/internal/domain/message"
	console_errors "agent-console/pkg/errors"
)

// GraphQL documents the backend exposes for the console.
const (
	queryCustomerByUserID = `query Customer($userId: Long!) {
  getCustomer(userId: $userId) {
    userId uid name email mobile vipLevel
  }
}`

	queryConversationByUserID = `query Conversation($userId: Long!) {
  getLastConversation(userId: $userId) {
    id organizationId staffId userId fromPage fromTitle vipLevel startTime endTime remarks
  }
}`

	queryConversationByID = `query Conversation($id: Long!) {
  getConversationById(id: $id) {
    id organizationId staffId userId fromPage fromTitle vipLevel startTime endTime remarks
  }
}`

	mutationTransferTo = `mutation TransferTo($transferQuery: TransferQueryInput!) {
  transferTo(transferQuery: $transferQuery) {
    id organizationId staffId userId startTime endTime
  }
}`

	querySyncMessageByStaff = `query SyncMessage($staffId: Long!, $cursor: Long!, $end: Long!) {
  syncMessageByStaff(staffId: $staffId, cursor: $cursor, end: $end) {
    content {
      uuid seqId from to creatorType createdAt
      content { contentType sysCode textContent { text } photoContent { mediaId picUrl } attachment { mediaId url fileName size } }
    }
  }
}`
)

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

// Client talks GraphQL over HTTP to the backend.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func NewClient(endpoint, accessToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		token:      accessToken,
	}
}

func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup: graphql status %d", resp.StatusCode)
	}

	var body gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if len(body.Errors) > 0 {
		return fmt.Errorf("lookup: graphql: %s", body.Errors[0].Message)
	}
	return json.Unmarshal(body.Data, out)
}

func (c *Client) CustomerByUserID(ctx context.Context, userID int64) (*customer.Customer, error) {
	var data struct {
		GetCustomer *customer.Customer `json:"getCustomer"`
	}
	if err := c.do(ctx, queryCustomerByUserID, map[string]interface{}{"userId": userID}, &data); err != nil {
		return nil, err
	}
	if data.GetCustomer == nil {
		return nil, console_errors.ErrNotFound
	}
	return data.GetCustomer, nil
}

func (c *Client) ConversationByUserID(ctx context.Context, userID int64) (*conversation.Conversation, error) {
	var data struct {
		GetLastConversation *conversation.Conversation `json:"getLastConversation"`
	}
	if err := c.do(ctx, queryConversationByUserID, map[string]interface{}{"userId": userID}, &data); err != nil {
		return nil, err
	}
	if data.GetLastConversation == nil {
		return nil, console_errors.ErrNotFound
	}
	return data.GetLastConversation, nil
}

func (c *Client) ConversationByID(ctx context.Context, id int64) (*conversation.Conversation, error) {
	var data struct {
		GetConversationByID *conversation.Conversation `json:"getConversationById"`
	}
	if err := c.do(ctx, queryConversationByID, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.GetConversationByID == nil {
		return nil, console_errors.ErrNotFound
	}
	return data.GetConversationByID, nil
}

func (c *Client) TransferTo(ctx context.Context, query conversation.TransferQuery) (*conversation.Conversation, error) {
	// Remarks stay console-side; the mutation takes only the routing fields.
	variables := map[string]interface{}{
		"transferQuery": map[string]interface{}{
			"userId":    query.UserID,
			"toStaffId": query.ToStaffID,
		},
	}
	var data struct {
		TransferTo *conversation.Conversation `json:"transferTo"`
	}
	if err := c.do(ctx, mutationTransferTo, variables, &data); err != nil {
		return nil, err
	}
	return data.TransferTo, nil
}

func (c *Client) SyncMessages(ctx context.Context, staffID, cursor, end int64) ([]*message.Message, error) {
	variables := map[string]interface{}{
		"staffId": staffID,
		"cursor":  cursor,
		"end":     end,
	}
	var data struct {
		SyncMessageByStaff struct {
			Content []*message.Message `json:"content"`
		} `json:"syncMessageByStaff"`
	}
	if err := c.do(ctx, querySyncMessageByStaff, variables, &data); err != nil {
		return nil, err
	}
	msgs := data.SyncMessageByStaff.Content
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].EffectiveSeq() < msgs[j].EffectiveSeq()
	})
	return msgs, nil
}
