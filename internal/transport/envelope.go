package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Response codes mirror HTTP: 200 success, 400 malformed/empty request.
const (
	CodeOK         = 200
	CodeBadRequest = 400
)

// Header correlates a request with its ack across the socket.
type Header struct {
	MID string `json:"mid"`
	SID string `json:"sid,omitempty"`
}

type Request struct {
	Header Header          `json:"header"`
	Body   json.RawMessage `json:"body"`
}

type Response struct {
	Header Header          `json:"header"`
	Code   int             `json:"code"`
	Body   json.RawMessage `json:"body"`
}

// NewRequest wraps body in a request envelope with a fresh message id.
func NewRequest(body interface{}) (Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Header: Header{MID: uuid.New().String()},
		Body:   raw,
	}, nil
}

// NewResponse builds a response echoing the request header.
func NewResponse(h Header, code int, body interface{}) Response {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = nil
	}
	return Response{Header: h, Code: code, Body: raw}
}

// OK is the plain success ack.
func OK(h Header) Response {
	return NewResponse(h, CodeOK, "OK")
}

// BadRequest acks a malformed or empty request.
func BadRequest(h Header, reason string) Response {
	return NewResponse(h, CodeBadRequest, reason)
}

// ResponseError carries a non-success response back to the caller instead of
// silently dropping it.
type ResponseError struct {
	Code int
	Body json.RawMessage
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("transport: response code %d: %s", e.Code, string(e.Body))
}
