// Package bucket is a non-blocking token bucket. The bus uses it to keep a
// persistently failing dispatch path from flooding the log.
package bucket

import (
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/metricbus/pkg/common/errors"
)

// Limit is the refill rate in tokens per second. Zero never refills; Inf
// allows everything.
type Limit float64

// Inf is the infinite rate limit; it allows all events.
var Inf = Limit(math.Inf(1))

// Every converts a minimum interval between events to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// Limiter decides whether an event may happen now. None of its methods
// block.
type Limiter interface {
	Allow() bool
	AllowN(n int) bool

	// Suppressed returns the number of events denied since the previous
	// call and resets it.
	Suppressed() uint64

	Limit() Limit
	Burst() int
	Tokens() float64
}

// Clock is the time source; tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Config configures NewWithConfig.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate Limit

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Clock defaults to the system clock.
	Clock Clock

	// InitialTokens is the number of tokens to start with. Negative
	// starts full.
	InitialTokens int
}

type tokenBucket struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
	suppressed uint64
}

// New creates a full bucket refilling at rate.
func New(rate Limit, burst int) (Limiter, error) {
	return NewWithConfig(Config{Rate: rate, Burst: burst, InitialTokens: -1})
}

// NewWithConfig creates a bucket from config.
func NewWithConfig(config Config) (Limiter, error) {
	if config.Rate < 0 {
		return nil, errors.NewValidationError("bucket", "rate", config.Rate, "cannot be negative").
			WithHint("use 0 for no refill or a positive value")
	}
	if config.Burst <= 0 {
		return nil, errors.NewValidationError("bucket", "burst", config.Burst, "must be positive").
			WithHint("burst is how many events pass back to back")
	}
	if config.Clock == nil {
		config.Clock = systemClock{}
	}

	tokens := float64(config.InitialTokens)
	if config.InitialTokens < 0 || tokens > float64(config.Burst) {
		tokens = float64(config.Burst)
	}

	return &tokenBucket{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     tokens,
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}

func (tb *tokenBucket) Allow() bool {
	return tb.AllowN(1)
}

func (tb *tokenBucket) AllowN(n int) bool {
	if n <= 0 {
		return true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	if tb.tokens < float64(n) {
		tb.suppressed += uint64(n)
		return false
	}
	tb.tokens -= float64(n)
	return true
}

func (tb *tokenBucket) Suppressed() uint64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	n := tb.suppressed
	tb.suppressed = 0
	return n
}

// limit and burst never change after construction.
func (tb *tokenBucket) Limit() Limit { return tb.limit }
func (tb *tokenBucket) Burst() int   { return tb.burst }

func (tb *tokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(tb.clock.Now())
	return tb.tokens
}

// refill must be called with mu held.
func (tb *tokenBucket) refill(now time.Time) {
	if tb.limit == Inf {
		tb.tokens = float64(tb.burst)
		tb.lastUpdate = now
		return
	}
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.lastUpdate = now
	tb.tokens = math.Min(tb.tokens+elapsed.Seconds()*float64(tb.limit), float64(tb.burst))
}
