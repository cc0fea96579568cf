package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	console_errors "agent-console/pkg/errors"
	"agent-console/pkg/logger"
)

// frame is the wire unit: either a named request expecting an ack, or the ack
// itself, correlated through the envelope header's mid.
type frame struct {
	Event    string    `json:"event,omitempty"`
	Kind     string    `json:"kind"` // "req" or "ack"
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

const (
	frameKindRequest = "req"
	frameKindAck     = "ack"
)

// HandlerFunc serves one server-pushed request. Implementations must call
// reply exactly once.
type HandlerFunc func(req Request, reply func(Response))

// Socket is the persistent event channel to the chat server. It implements
// Emitter for the outbound direction and dispatches server-pushed requests to
// registered handlers.
type Socket struct {
	conn *websocket.Conn
	send chan frame
	log  *logger.Logger

	mu       sync.Mutex
	pending  map[string]func(Response)
	handlers map[string]HandlerFunc
	closed   bool
}

// Dial connects the socket. The access token travels in the Authorization
// header of the upgrade request.
func Dial(ctx context.Context, socketURL, accessToken string, log *logger.Logger) (*Socket, error) {
	header := http.Header{}
	if accessToken != "" {
		header.Set("Authorization", "Bearer "+accessToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, header)
	if err != nil {
		return nil, err
	}
	return &Socket{
		conn:     conn,
		send:     make(chan frame, 256),
		log:      log,
		pending:  make(map[string]func(Response)),
		handlers: make(map[string]HandlerFunc),
	}, nil
}

// Handle registers the handler for a server-pushed event. Must be called
// before ReadLoop starts.
func (s *Socket) Handle(event string, h HandlerFunc) {
	s.mu.Lock()
	s.handlers[event] = h
	s.mu.Unlock()
}

// Emit queues one request frame and registers its ack callback.
func (s *Socket) Emit(event string, req Request, ack func(Response)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return console_errors.ErrNotConnected
	}
	s.pending[req.Header.MID] = ack
	s.mu.Unlock()

	select {
	case s.send <- frame{Event: event, Kind: frameKindRequest, Request: &req}:
		return nil
	default:
		s.mu.Lock()
		delete(s.pending, req.Header.MID)
		s.mu.Unlock()
		return console_errors.ErrNotConnected
	}
}

// WriteLoop drains the send queue onto the connection with write deadlines and
// a keepalive ping ticker.
func (s *Socket) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.close()
			return
		case f, ok := <-s.send:
			if !ok {
				s.close()
				return
			}
			payload, err := json.Marshal(f)
			if err != nil {
				s.log.Errorf("marshal frame: %v", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Errorf("socket write: %v", err)
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = s.conn.WriteMessage(websocket.PingMessage, []byte("ping"))
		}
	}
}

// ReadLoop reads frames until the connection drops, routing acks to pending
// callbacks and requests to registered handlers.
func (s *Socket) ReadLoop(ctx context.Context) {
	defer s.close()
	for {
		if ctx.Err() != nil {
			return
		}
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Errorf("socket read: %v", err)
			return
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			s.log.Warnf("malformed frame dropped: %v", err)
			continue
		}
		switch f.Kind {
		case frameKindAck:
			s.dispatchAck(f)
		case frameKindRequest:
			s.dispatchRequest(f)
		default:
			s.log.Warnf("unknown frame kind %q", f.Kind)
		}
	}
}

func (s *Socket) dispatchAck(f frame) {
	if f.Response == nil {
		return
	}
	s.mu.Lock()
	ack, ok := s.pending[f.Response.Header.MID]
	if ok {
		delete(s.pending, f.Response.Header.MID)
	}
	s.mu.Unlock()
	if ok {
		ack(*f.Response)
	}
}

func (s *Socket) dispatchRequest(f frame) {
	if f.Request == nil {
		return
	}
	s.mu.Lock()
	h, ok := s.handlers[f.Event]
	s.mu.Unlock()
	if !ok {
		s.log.Warnf("no handler for event %q", f.Event)
		return
	}
	req := *f.Request
	h(req, func(resp Response) {
		select {
		case s.send <- frame{Event: f.Event, Kind: frameKindAck, Response: &resp}:
		default:
			s.log.Warnf("ack for %q dropped, send queue full", f.Event)
		}
	})
}

func (s *Socket) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	// Pending callers time out on their own; nothing to deliver here.
	s.pending = make(map[string]func(Response))
	s.mu.Unlock()

	_ = s.conn.Close()
}
