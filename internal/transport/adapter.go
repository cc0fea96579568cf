package transport

import (
	"context"
	"time"

	console_errors "agent-console/pkg/errors"
	"agent-console/pkg/logger"
)

// DefaultAckTimeout bounds how long a caller waits for the server ack.
const DefaultAckTimeout = 5 * time.Second

// Emitter is the underlying fire-and-forget event channel. Exactly one emit
// happens per Send call; the ack callback fires at most once.
type Emitter interface {
	Emit(event string, req Request, ack func(Response)) error
}

// Adapter exposes request/response semantics with timeout over an Emitter.
// It never retries; retry policy is layered on top.
type Adapter struct {
	emitter Emitter
	timeout time.Duration
	log     *logger.Logger
}

func NewAdapter(emitter Emitter, timeout time.Duration, log *logger.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	return &Adapter{emitter: emitter, timeout: timeout, log: log}
}

// Send emits one request and waits for its ack. A missing ack within the
// timeout fails with ErrTimeout; an ack with a non-200 code fails with a
// ResponseError carrying the server's error payload.
func (a *Adapter) Send(ctx context.Context, event string, req Request) (Response, error) {
	acks := make(chan Response, 1)
	err := a.emitter.Emit(event, req, func(resp Response) {
		select {
		case acks <- resp:
		default:
			// Late or duplicate ack after timeout; drop.
		}
	})
	if err != nil {
		return Response{}, err
	}

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case resp := <-acks:
		if resp.Code != CodeOK {
			return Response{}, &ResponseError{Code: resp.Code, Body: resp.Body}
		}
		return resp, nil
	case <-timer.C:
		a.log.Warnf("no ack for %s within %s", event, a.timeout)
		return Response{}, console_errors.ErrTimeout
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
