package console_errors

import "errors"

// Common errors
var (
	ErrTimeout         = errors.New("transport timeout")
	ErrRequestEmpty    = errors.New("request empty")
	ErrNotFound        = errors.New("not found")
	ErrNotConnected    = errors.New("socket not connected")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFailed       = errors.New("message is not in failed state")
	ErrTransferNoStaff = errors.New("transfer failed, no staff online or idle")
)
