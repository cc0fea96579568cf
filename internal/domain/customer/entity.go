package customer

import "time"

// Customer is the denormalized profile snapshot of a conversation counterpart.
type Customer struct {
	UserID   int64  `json:"userId"`
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
	VIPLevel int    `json:"vipLevel,omitempty"`

	Status *Status `json:"status,omitempty"`
}

// OnlineStatus of a customer as reported by the server.
type OnlineStatus string

const (
	StatusOnline  OnlineStatus = "ONLINE"
	StatusOffline OnlineStatus = "OFFLINE"
	StatusAway    OnlineStatus = "AWAY"
)

// Status is the presence payload of an ONLINE_STATUS_CHANGED system event.
type Status struct {
	UserID       int64        `json:"userId"`
	OnlineStatus OnlineStatus `json:"onlineStatus"`
	LastSeenAt   *time.Time   `json:"lastSeenAt,omitempty"`
}
