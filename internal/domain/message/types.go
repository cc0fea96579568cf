package message

// AuthorKind distinguishes who produced a message.
type AuthorKind int

const (
	AuthorSystem AuthorKind = iota
	AuthorStaff
	AuthorCustomer
)

// ContentType tags the single populated payload of a Content.
type ContentType string

const (
	ContentText  ContentType = "TEXT"
	ContentImage ContentType = "IMAGE"
	ContentFile  ContentType = "FILE"
)

// SysCode tags the payload of a system message.
type SysCode string

const (
	SysUpdateQueue         SysCode = "UPDATE_QUEUE"
	SysAssign              SysCode = "ASSIGN"
	SysNoAnswer            SysCode = "NO_ANSWER"
	SysOnlineStatusChanged SysCode = "ONLINE_STATUS_CHANGED"
	SysConvEnd             SysCode = "CONV_END"
	SysConvUpdate          SysCode = "CONV_UPDATE"
	SysTransferRequest     SysCode = "TRANSFER_REQUEST"
	SysTransferResponse    SysCode = "TRANSFER_RESPONSE"
)

// DeliveryState tracks an outbound message through the send pipeline.
type DeliveryState int

const (
	DeliveryPending DeliveryState = iota
	DeliverySynced
	DeliveryFailed
)

func (s DeliveryState) String() string {
	switch s {
	case DeliverySynced:
		return "SYNCED"
	case DeliveryFailed:
		return "FAILED"
	default:
		return "PENDING"
	}
}
