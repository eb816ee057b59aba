package testutil

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// MockClock is a manually advanced clock for limiters and producers that
// take a time source.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a clock at start, or at the current time when start
// is zero.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// SyncWriter is an io.Writer safe for the concurrent writes console views
// make from executor goroutines.
type SyncWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
}

func NewSyncWriter() *SyncWriter {
	return &SyncWriter{}
}

func (w *SyncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	return w.buf.Write(p)
}

func (w *SyncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// WriteCount returns the number of Write calls so far.
func (w *SyncWriter) WriteCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Lines returns the complete lines written so far.
func (w *SyncWriter) Lines() []string {
	s := strings.TrimSuffix(w.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
