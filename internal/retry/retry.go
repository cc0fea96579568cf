package retry

import (
	"context"
	"errors"
	"time"

	console_errors "agent-console/pkg/errors"
)

// Defaults for message sends.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// Policy retries timed-out calls with linearly increasing delay: the wait
// before attempt n+1 is n*BaseDelay. Any non-timeout failure propagates
// immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPolicy(maxAttempts int, baseDelay time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, sleep: sleepCtx}
}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultMaxAttempts, DefaultBaseDelay)
}

// Do runs call until it succeeds, fails with a non-timeout error, or exhausts
// MaxAttempts. Exhaustion returns the last timeout error.
func (p Policy) Do(ctx context.Context, call func(ctx context.Context) error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = call(ctx)
		if err == nil || !errors.Is(err, console_errors.ErrTimeout) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return err
		}
		if serr := sleep(ctx, time.Duration(attempt)*p.BaseDelay); serr != nil {
			return serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
