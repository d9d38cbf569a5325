// ABOUTME: In-process counter implementation with rolling window reset
// ABOUTME: Used for tests and single-node deployments without a shared store

package gate

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	count int
	end   time.Time
}

// MemoryCounter implements Counter with an in-process map. Windows use the
// same fixed-window-with-rolling-reset semantics as the SQLite counter: the
// first event for a key opens a window, and the count resets once the
// window end elapses. Safe for concurrent use.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	clock   Clock
}

// NewMemoryCounter creates a MemoryCounter. A nil clock uses the system clock.
func NewMemoryCounter(clock Clock) *MemoryCounter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryCounter{
		windows: make(map[string]*memoryWindow),
		clock:   clock,
	}
}

// IncrementAndCheck counts one event against the key's current window.
func (m *MemoryCounter) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.end) {
		w = &memoryWindow{count: 0, end: now.Add(window)}
		m.windows[key] = w
	}
	w.count++

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return w.count <= limit, remaining, w.end, nil
}

// PurgeExpired drops windows whose end has elapsed. Returns the number removed.
func (m *MemoryCounter) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.end) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}
