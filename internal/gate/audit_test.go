// ABOUTME: Unit tests for the async audit recorder
// ABOUTME: Verifies persistence, non-blocking drops, and clean shutdown

package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeyard/tutor-gateway/internal/store"
)

// memWriter collects appended events.
type memWriter struct {
	mu     sync.Mutex
	events []store.AdmissionEvent
	err    error
	block  chan struct{} // when set, appends wait until closed
}

func (m *memWriter) AppendAdmissionEvent(_ context.Context, ev *store.AdmissionEvent) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, *ev)
	return nil
}

func (m *memWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestAsyncAuditor_PersistsEvents(t *testing.T) {
	w := &memWriter{}
	a := NewAsyncAuditor(w, slog.Default())

	for i := 0; i < 10; i++ {
		a.Record(store.AdmissionEvent{
			Kind: store.AdmissionAdmitted,
			Axis: "ip",
			IP:   "1.2.3.4",
		})
	}
	a.Close()

	require.Equal(t, 10, w.count())
	assert.Equal(t, int64(0), a.Dropped())
}

func TestAsyncAuditor_WriteFailureSwallowed(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}
	a := NewAsyncAuditor(w, slog.Default())

	// Must not panic or block even though every write fails
	a.Record(store.AdmissionEvent{Kind: store.AdmissionRateLimited, Axis: "email"})
	a.Close()
}

func TestAsyncAuditor_NeverBlocksWhenFull(t *testing.T) {
	w := &memWriter{block: make(chan struct{})}
	a := NewAsyncAuditor(w, slog.Default())

	// Fill the buffer (plus the event the writer is stuck on) and keep going
	done := make(chan struct{})
	go func() {
		for i := 0; i < auditBufferSize*2; i++ {
			a.Record(store.AdmissionEvent{Kind: store.AdmissionAdmitted, Axis: "ip"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked with a full buffer")
	}

	assert.Greater(t, a.Dropped(), int64(0))

	close(w.block)
	a.Close()
}

func TestAsyncAuditor_RecordAfterClose(t *testing.T) {
	w := &memWriter{}
	a := NewAsyncAuditor(w, slog.Default())
	a.Close()

	// Must not panic
	a.Record(store.AdmissionEvent{Kind: store.AdmissionAdmitted, Axis: "ip"})
	a.Close() // idempotent
}
