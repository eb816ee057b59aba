// Package testutil holds assertions, executors and clocks shared by the
// package tests.
package testutil

import (
	"sync"
	"testing"
	"time"
)

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// Eventually polls cond every interval until it returns true, failing the
// test once timeout elapses.
func Eventually(t *testing.T, cond func() bool, timeout, interval time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(interval)
	}
}

// CallbackTracker counts invocations of a callback under test. It is safe
// to mark from executor goroutines.
type CallbackTracker struct {
	mu    sync.Mutex
	count int
}

func NewCallbackTracker() *CallbackTracker {
	return &CallbackTracker{}
}

func (c *CallbackTracker) Mark() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

// Called reports whether Mark was called at least once.
func (c *CallbackTracker) Called() bool {
	return c.CallCount() > 0
}

func (c *CallbackTracker) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *CallbackTracker) AssertNotCalled(t *testing.T) {
	t.Helper()
	if n := c.CallCount(); n != 0 {
		t.Fatalf("expected callback not to be called, got %d calls", n)
	}
}

func (c *CallbackTracker) AssertCallCount(t *testing.T, n int) {
	t.Helper()
	if got := c.CallCount(); got != n {
		t.Fatalf("call count = %d, want %d", got, n)
	}
}
