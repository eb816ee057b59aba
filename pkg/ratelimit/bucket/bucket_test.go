package bucket

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/metricbus/internal/testutil"
	"github.com/vnykmshr/metricbus/pkg/common/errors"
)

func newTestBucket(t *testing.T, rate Limit, burst, initial int) (Limiter, *testutil.MockClock) {
	t.Helper()
	clock := testutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l, err := NewWithConfig(Config{Rate: rate, Burst: burst, Clock: clock, InitialTokens: initial})
	testutil.AssertNoError(t, err)
	return l, clock
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		rate    Limit
		burst   int
		wantErr bool
	}{
		{"valid", 10, 5, false},
		{"zero rate", 0, 5, false},
		{"infinite rate", Inf, 5, false},
		{"negative rate", -1, 5, true},
		{"zero burst", 10, 0, true},
		{"negative burst", 10, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.rate, tt.burst)
			if tt.wantErr {
				if !errors.IsValidationError(err) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				if l != nil {
					t.Error("expected nil limiter on error")
				}
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, l.Limit(), tt.rate)
			testutil.AssertEqual(t, l.Burst(), tt.burst)
			testutil.AssertEqual(t, l.Tokens(), float64(tt.burst))
		})
	}
}

func TestEvery(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     Limit
	}{
		{100 * time.Millisecond, 10},
		{time.Second, 1},
		{time.Minute, Limit(1.0 / 60)},
		{0, Inf},
		{-time.Second, Inf},
	}

	for _, tt := range tests {
		got := Every(tt.interval)
		if math.IsInf(float64(tt.want), 1) {
			if !math.IsInf(float64(got), 1) {
				t.Errorf("Every(%v) = %v, want Inf", tt.interval, got)
			}
			continue
		}
		if math.Abs(float64(got-tt.want)) > 1e-10 {
			t.Errorf("Every(%v) = %v, want %v", tt.interval, got, tt.want)
		}
	}
}

func TestAllowRefills(t *testing.T) {
	l, clock := newTestBucket(t, 10, 5, -1)

	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("event %d should pass on a full bucket", i)
		}
	}
	if l.Allow() {
		t.Fatal("empty bucket should deny")
	}

	clock.Advance(100 * time.Millisecond)
	if !l.Allow() {
		t.Error("one token should have refilled after 100ms")
	}
	if l.Allow() {
		t.Error("refilled token was already spent")
	}

	clock.Advance(time.Hour)
	testutil.AssertEqual(t, l.Tokens(), 5.0)
}

func TestAllowN(t *testing.T) {
	l, _ := newTestBucket(t, 10, 10, 10)

	testutil.AssertEqual(t, l.AllowN(3), true)
	testutil.AssertEqual(t, l.Tokens(), 7.0)
	testutil.AssertEqual(t, l.AllowN(8), false)
	testutil.AssertEqual(t, l.AllowN(7), true)
	testutil.AssertEqual(t, l.AllowN(0), true)
}

func TestInitialTokens(t *testing.T) {
	l, _ := newTestBucket(t, 1, 3, 0)
	testutil.AssertEqual(t, l.Allow(), false)

	l, _ = newTestBucket(t, 1, 3, 10)
	testutil.AssertEqual(t, l.Tokens(), 3.0)
}

func TestSuppressed(t *testing.T) {
	l, clock := newTestBucket(t, Every(time.Minute), 1, -1)

	testutil.AssertEqual(t, l.Allow(), true)
	for i := 0; i < 4; i++ {
		l.Allow()
	}
	testutil.AssertEqual(t, l.AllowN(2), false)
	testutil.AssertEqual(t, l.Suppressed(), uint64(6))
	testutil.AssertEqual(t, l.Suppressed(), uint64(0))

	clock.Advance(time.Minute)
	testutil.AssertEqual(t, l.Allow(), true)
	testutil.AssertEqual(t, l.Suppressed(), uint64(0))
}

func TestInfiniteRate(t *testing.T) {
	l, err := New(Inf, 1)
	testutil.AssertNoError(t, err)

	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatalf("event %d denied with infinite rate", i)
		}
	}
	testutil.AssertEqual(t, l.Suppressed(), uint64(0))
	testutil.AssertEqual(t, l.Tokens(), 1.0)
}

func TestZeroRate(t *testing.T) {
	l, clock := newTestBucket(t, 0, 2, -1)

	testutil.AssertEqual(t, l.Allow(), true)
	testutil.AssertEqual(t, l.Allow(), true)
	testutil.AssertEqual(t, l.Allow(), false)

	clock.Advance(time.Hour)
	testutil.AssertEqual(t, l.Allow(), false)
}

func TestClockGoingBackwards(t *testing.T) {
	l, clock := newTestBucket(t, 1, 1, -1)
	testutil.AssertEqual(t, l.Allow(), true)

	clock.Advance(-time.Hour)
	testutil.AssertEqual(t, l.Allow(), false)

	// Refill resumes from the newest timestamp seen.
	clock.Advance(time.Hour + time.Second)
	testutil.AssertEqual(t, l.Allow(), true)
}

func TestConcurrentAllow(t *testing.T) {
	l, err := New(0, 100)
	testutil.AssertNoError(t, err)

	const goroutines = 10
	const perGoroutine = 50
	var allowed sync.WaitGroup
	var mu sync.Mutex
	passed := 0

	allowed.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer allowed.Done()
			for j := 0; j < perGoroutine; j++ {
				if l.Allow() {
					mu.Lock()
					passed++
					mu.Unlock()
				}
			}
		}()
	}
	allowed.Wait()

	testutil.AssertEqual(t, passed, 100)
	testutil.AssertEqual(t, l.Suppressed(), uint64(goroutines*perGoroutine-100))
}
