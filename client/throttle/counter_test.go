package throttle

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// fakeClock only moves when told to, or when something sleeps on it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewEMACounter_Validation(t *testing.T) {
	for _, period := range []int{0, -1} {
		if _, err := NewEMACounter(period, nil); !errors.Is(err, ErrMustNotBeZero) {
			t.Errorf("period %d: exp %v; got %v", period, ErrMustNotBeZero, err)
		}
	}

	c, err := NewEMACounter(DefaultPeriod, nil)
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if c.Period() != DefaultPeriod {
		t.Errorf("exp period %d; got %d", DefaultPeriod, c.Period())
	}
	if got := c.Poll(); got != 0 {
		t.Errorf("fresh counter should estimate 0, got %v", got)
	}
}

func TestEMACounter_MonotonicWithinBucket(t *testing.T) {
	clock := newFakeClock()
	c, err := NewEMACounter(6, clock)
	if err != nil {
		t.Fatal(err)
	}

	prev := c.Poll()
	for i := range 500 {
		c.Tick()
		clock.Advance(50 * time.Millisecond) // 25s total, stays inside the first minute

		got := c.Poll()
		if got < prev {
			t.Fatalf("tick %d: estimate dropped from %v to %v", i+1, prev, got)
		}
		prev = got
	}

	exp := 500 * 2.0 / 7.0
	if !almostEqual(prev, exp) {
		t.Errorf("exp estimate %v after 500 ticks; got %v", exp, prev)
	}
}

func TestEMACounter_DecaysWhenIdle(t *testing.T) {
	clock := newFakeClock()
	c, err := NewEMACounter(6, clock)
	if err != nil {
		t.Fatal(err)
	}

	for range 60 {
		c.Tick()
	}
	busy := c.Poll()

	w := 2.0 / 7.0
	clock.Advance(time.Minute)
	first := c.Poll()
	if exp := (1 - w) * (w * 60); !almostEqual(first, exp) {
		t.Errorf("exp %v one minute later; got %v", exp, first)
	}
	if first >= busy {
		t.Errorf("estimate should decay: busy %v, after a minute %v", busy, first)
	}

	clock.Advance(time.Minute)
	second := c.Poll()
	if second >= first {
		t.Errorf("estimate should keep decaying: %v then %v", first, second)
	}

	clock.Advance(24 * time.Hour)
	if got := c.Poll(); got != 0 {
		t.Errorf("exp 0 after a long idle period, got %v", got)
	}
}

func TestEMACounter_SteadyRate(t *testing.T) {
	clock := newFakeClock()
	c, err := NewEMACounter(6, clock)
	if err != nil {
		t.Fatal(err)
	}

	const perMinute = 10
	for range 60 {
		for range perMinute {
			c.Tick()
			clock.Advance(time.Minute / (perMinute + 1))
		}
		clock.Advance(time.Minute - perMinute*(time.Minute/(perMinute+1)))
	}

	// Refill the open bucket so the blend matches a closed minute.
	for range perMinute {
		c.Tick()
	}

	if got := c.Poll(); math.Abs(got-perMinute) > 0.01 {
		t.Errorf("exp estimate close to %d/min; got %v", perMinute, got)
	}
}

func TestEMACounter_ConcurrentTicks(t *testing.T) {
	clock := newFakeClock()
	c, err := NewEMACounter(1, clock) // weight 1: estimate equals the open bucket
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			for range 20 {
				c.Tick()
				_ = c.Poll()
			}
		})
	}
	wg.Wait()

	if got := c.Poll(); got != 1000 {
		t.Errorf("exp 1000 recorded ticks; got %v", got)
	}
}
