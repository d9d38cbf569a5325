// ABOUTME: Fire-and-forget audit recording for admission decisions
// ABOUTME: Buffered channel consumed by a background writer; drops on overflow

package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeyard/tutor-gateway/internal/store"
)

// AuditRecorder receives one event per gate evaluation. Implementations
// must never block and never propagate failure to the caller.
type AuditRecorder interface {
	Record(ev store.AdmissionEvent)
}

// NopAuditor discards all events.
type NopAuditor struct{}

func (NopAuditor) Record(store.AdmissionEvent) {}

// AdmissionWriter is the store subset the async auditor writes through.
type AdmissionWriter interface {
	AppendAdmissionEvent(ctx context.Context, ev *store.AdmissionEvent) error
}

// AsyncAuditor persists admission events through a buffered channel drained
// by a single background goroutine. Record never blocks: if the buffer is
// full the event is dropped and counted. Write failures are logged and
// swallowed.
type AsyncAuditor struct {
	writer AdmissionWriter
	logger *slog.Logger

	events chan store.AdmissionEvent
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int64
}

const auditBufferSize = 256

// NewAsyncAuditor creates an AsyncAuditor and starts its background writer.
// Call Close to drain and stop it.
func NewAsyncAuditor(writer AdmissionWriter, logger *slog.Logger) *AsyncAuditor {
	a := &AsyncAuditor{
		writer: writer,
		logger: logger.With("component", "audit"),
		events: make(chan store.AdmissionEvent, auditBufferSize),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Record enqueues an event for background persistence. Never blocks.
// The mutex is held across the send so Close cannot close the channel
// between the closed check and the send.
func (a *AsyncAuditor) Record(ev store.AdmissionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	select {
	case a.events <- ev:
	default:
		a.dropped++
		a.logger.Warn("audit buffer full, dropping event", "dropped_total", a.dropped)
	}
}

// Dropped returns the number of events discarded due to a full buffer.
func (a *AsyncAuditor) Dropped() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close stops accepting events, drains the buffer, and waits for the
// background writer to finish.
func (a *AsyncAuditor) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	close(a.events)
	<-a.done
}

func (a *AsyncAuditor) run() {
	defer close(a.done)
	for ev := range a.events {
		// Detached context: an in-flight request being canceled must not
		// abort the audit write.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.writer.AppendAdmissionEvent(ctx, &ev); err != nil {
			a.logger.Warn("failed to persist admission event",
				"kind", ev.Kind, "axis", ev.Axis, "error", err)
		}
		cancel()
	}
}
