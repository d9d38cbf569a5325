// Package gate implements the request admission gate for tutor-gateway.
//
// The gate decides whether an inbound request may proceed, using independent
// counting windows per identity axis (client IP, email, user). Each axis has
// its own limit and window duration, configured per deployment.
//
// # Axes and Ordering
//
// Axes are always evaluated coarse-to-fine: the IP axis first, then the
// finer identity axis (email or user). An anonymous flood is rejected before
// any per-identity state is touched, and when no email is supplied the gate
// still returns a decision based on the IP axis alone. This keeps the
// password-reset flow from leaking which emails are registered.
//
// # Counters
//
// Counting is delegated to a Counter implementation. The SQLite store
// provides a durable counter shared across processes; MemoryCounter provides
// an in-process counter for tests and single-node deployments. Both use
// fixed windows with rolling reset: the first event for a key opens a
// window, and the count resets once the window end elapses.
//
// # Auditing
//
// Every evaluation is recorded as a best-effort audit event through an
// AuditRecorder. Identities are one-way hashed before recording; raw emails
// never reach the audit trail. Audit writes are fire-and-forget and never
// block or alter the admission decision.
package gate
