package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMustNotBeZero     = errors.New("must be greater than zero")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrUnknownMode       = errors.New("unknown throttle mode")
)

// Mode selects what a Gate does with a call that arrives over the ceiling.
type Mode int32

const (
	// Block suspends the caller until the estimate falls to the ceiling.
	Block Mode = iota
	// Fail rejects the caller with ErrRateLimitExceeded.
	Fail
)

func (m Mode) String() string {
	switch m {
	case Block:
		return "block"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// ParseMode converts "block" or "fail" (any case) into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return Block, nil
	case "fail":
		return Fail, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrUnknownMode)
	}
}

// Counter keeps a decaying estimate of calls per minute.
// Implementations must be safe for concurrent use.
type Counter interface {
	// Tick records one call at the current instant.
	Tick()
	// Poll returns the current estimate without recording anything.
	Poll() float64
}

// Clock is the time source used by counters and by Block mode waits.
// It satisfies backoff.Clock.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}
