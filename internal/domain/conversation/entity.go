package conversation

import "time"

// Conversation is the server-owned metadata of one conversation, identified by
// ID. UserID is the customer counterpart and the stable session key on the
// console side.
type Conversation struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organizationId,omitempty"`
	StaffID        int64      `json:"staffId"`
	UserID         int64      `json:"userId"`
	FromPage       string     `json:"fromPage,omitempty"`
	FromTitle      string     `json:"fromTitle,omitempty"`
	VIPLevel       int        `json:"vipLevel,omitempty"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Remarks        string     `json:"remarks,omitempty"`
}

// TransferQuery is what the operator fills in to hand a conversation to
// another staff member. Remarks travel in the request message only, not in the
// backend mutation.
type TransferQuery struct {
	UserID    int64  `json:"userId"`
	ToStaffID int64  `json:"toStaffId"`
	Remarks   string `json:"remarks,omitempty"`
}

// TransferRequest is the system-message payload asking a staff member to take
// over a conversation.
type TransferRequest struct {
	UserID      int64  `json:"userId"`
	FromStaffID int64  `json:"fromStaffId"`
	ToStaffID   int64  `json:"toStaffId"`
	Remarks     string `json:"remarks,omitempty"`
}

// TransferResponse is the system-message payload answering a TransferRequest.
type TransferResponse struct {
	UserID      int64  `json:"userId"`
	FromStaffID int64  `json:"fromStaffId"`
	Accept      bool   `json:"accept"`
	Reason      string `json:"reason,omitempty"`
}
