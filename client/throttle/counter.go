package throttle

import (
	"fmt"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
)

// DefaultPeriod is the moving average age, in minutes, used when none is given.
const DefaultPeriod = 6

// EMACounter is a Counter that estimates calls per minute with an
// exponential moving average over one-minute buckets.
//
// Calls land in the open bucket. When a minute elapses the bucket's count is
// folded into the average and idle minutes fold in zeros. Poll blends the
// open bucket into the average with the same weight a closed bucket gets, so
// the estimate never drops while calls accumulate inside one minute.
type EMACounter struct {
	mu     sync.Mutex
	clock  Clock
	avg    ewma.MovingAverage
	weight float64
	period int
	start  time.Time
	bucket float64
}

// NewEMACounter returns a counter averaging over period minutes.
// A nil clock uses the wall clock.
func NewEMACounter(period int, clock Clock) (*EMACounter, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period[%d] %w", period, ErrMustNotBeZero)
	}
	if clock == nil {
		clock = SystemClock()
	}

	avg := ewma.NewMovingAverage(float64(period))
	avg.Set(0) // skip the warm-up window, start from an idle source

	return &EMACounter{
		clock:  clock,
		avg:    avg,
		weight: 2 / (float64(period) + 1),
		period: period,
		start:  clock.Now(),
	}, nil
}

// Tick implements Counter.
func (c *EMACounter) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll(c.clock.Now())
	c.bucket++
}

// Poll implements Counter.
func (c *EMACounter) Poll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll(c.clock.Now())

	return c.weight*c.bucket + (1-c.weight)*c.avg.Value()
}

// Period reports the moving average age in minutes.
func (c *EMACounter) Period() int {
	return c.period
}

// roll closes every bucket that ended before now. Callers hold c.mu.
func (c *EMACounter) roll(now time.Time) {
	elapsed := now.Sub(c.start)
	if elapsed < time.Minute {
		return
	}

	closed := int(elapsed / time.Minute)
	c.start = c.start.Add(time.Duration(closed) * time.Minute)

	// After this many idle minutes the average is indistinguishable from zero.
	idleLimit := 10 * c.period
	if closed > idleLimit {
		c.avg.Set(0)
		c.bucket = 0
		return
	}

	c.avg.Add(c.bucket)
	for range closed - 1 {
		c.avg.Add(0)
	}
	c.bucket = 0
}
