// ABOUTME: Admission gate evaluating per-axis rate windows
// ABOUTME: Composes IP, email, and user axes with audit recording

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeyard/tutor-gateway/internal/store"
)

// ErrCounterUnavailable indicates the backing counter store could not be
// reached. Distinct from a normal rate-limit rejection: the caller's
// fail-open/fail-closed policy decides what happens next.
var ErrCounterUnavailable = errors.New("counter store unavailable")

// Counter is the contract the gate consumes for window counting. Each call
// atomically increments the key's window and reports whether the event was
// admitted. Implementations must tolerate concurrent callers on the same
// key without losing increments.
type Counter interface {
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time, err error)
}

// Policy is the per-axis rate limit configuration.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the result of evaluating one axis. Constructed fresh per
// evaluation, never persisted.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Config holds the gate's deployment policy.
type Config struct {
	IP    Policy
	Email Policy
	Chat  Policy

	// ChatIP optionally gates chat traffic per client IP before the
	// per-user axis, on a window separate from the password-reset IP
	// window. A zero Limit disables the pre-check.
	ChatIP Policy

	// BlockOnEmailLimit controls whether exceeding the email axis actively
	// rejects a password-reset request. When false (the default
	// no-enumeration posture) the request is admitted and the rejection is
	// only recorded for audit.
	BlockOnEmailLimit bool

	// FailOpen admits requests when the counter store is unreachable.
	// The default is fail-closed: reject during an outage.
	FailOpen bool
}

// Gate evaluates admission decisions across identity axes.
type Gate struct {
	counter Counter
	auditor AuditRecorder
	cfg     Config
	logger  *slog.Logger
}

// New creates a Gate. A nil auditor disables audit recording.
func New(counter Counter, auditor AuditRecorder, cfg Config, logger *slog.Logger) *Gate {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &Gate{
		counter: counter,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger.With("component", "gate"),
	}
}

// Evaluate runs one axis through its counter and records an audit event.
// identity is the raw axis identity (IP, email, or user ID); ip is the
// client IP attached to the audit record. Exceeding the limit is a normal
// Allowed=false decision, not an error; only counter store failures return
// an error, wrapped in ErrCounterUnavailable.
func (g *Gate) Evaluate(ctx context.Context, axis Axis, identity, ip string) (Decision, error) {
	pol, key, err := g.axisPolicy(axis, identity)
	if err != nil {
		return Decision{}, err
	}
	if pol.Limit <= 0 {
		return Decision{}, fmt.Errorf("axis %s: limit must be positive, got %d", axis, pol.Limit)
	}
	if pol.Window <= 0 {
		return Decision{}, fmt.Errorf("axis %s: window must be positive, got %v", axis, pol.Window)
	}

	allowed, remaining, resetAt, err := g.counter.IncrementAndCheck(ctx, key, pol.Limit, pol.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}

	dec := Decision{
		Allowed:   allowed,
		Limit:     pol.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	g.record(axis, identity, ip, dec)
	return dec, nil
}

func (g *Gate) axisPolicy(axis Axis, identity string) (Policy, string, error) {
	switch axis {
	case AxisIP:
		return g.cfg.IP, IPKey(identity), nil
	case AxisEmail:
		return g.cfg.Email, EmailKey(identity), nil
	case AxisUser:
		return g.cfg.Chat, UserKey(identity), nil
	case AxisChatIP:
		return g.cfg.ChatIP, ChatIPKey(identity), nil
	default:
		return Policy{}, "", fmt.Errorf("unknown axis: %s", axis)
	}
}

// record sends a fire-and-forget audit event for one evaluation.
func (g *Gate) record(axis Axis, identity, ip string, dec Decision) {
	kind := store.AdmissionAdmitted
	if !dec.Allowed {
		kind = store.AdmissionRateLimited
	}
	g.auditor.Record(store.AdmissionEvent{
		Kind:           kind,
		Axis:           string(axis),
		HashedIdentity: HashIdentity(identity),
		IP:             ip,
		Remaining:      dec.Remaining,
		ResetAt:        dec.ResetAt,
	})
}

// outageDecision applies the fail-open/fail-closed policy for one axis when
// the counter store is unreachable.
func (g *Gate) outageDecision(axis Axis, err error) Decision {
	pol := g.cfg.IP
	switch axis {
	case AxisEmail:
		pol = g.cfg.Email
	case AxisUser:
		pol = g.cfg.Chat
	case AxisChatIP:
		pol = g.cfg.ChatIP
	}
	if g.cfg.FailOpen {
		g.logger.Warn("counter store unavailable, admitting request",
			"axis", axis, "error", err)
		return Decision{Allowed: true, Limit: pol.Limit, Remaining: pol.Limit}
	}
	g.logger.Error("counter store unavailable, rejecting request",
		"axis", axis, "error", err)
	return Decision{Allowed: false, Limit: pol.Limit, Remaining: 0}
}

// ResetDecision is the composite outcome of gating a password-reset request.
type ResetDecision struct {
	IP      Decision
	Email   *Decision // nil when no email was supplied or IP already blocked
	Blocked bool
}

// CheckPasswordReset gates a password-reset request: IP axis first, then the
// email axis when an email is supplied. The email axis only blocks when
// BlockOnEmailLimit is set; otherwise an exceeded email window is recorded
// for audit and the request is still admitted. Counter outages are resolved
// by the configured fail-open/fail-closed policy rather than returned.
func (g *Gate) CheckPasswordReset(ctx context.Context, ip, email string) ResetDecision {
	ipDec, err := g.Evaluate(ctx, AxisIP, ip, ip)
	if err != nil {
		ipDec = g.outageDecision(AxisIP, err)
	}
	if !ipDec.Allowed {
		return ResetDecision{IP: ipDec, Blocked: true}
	}

	if NormalizeEmail(email) == "" {
		return ResetDecision{IP: ipDec}
	}

	emailDec, err := g.Evaluate(ctx, AxisEmail, email, ip)
	if err != nil {
		emailDec = g.outageDecision(AxisEmail, err)
	}
	blocked := g.cfg.BlockOnEmailLimit && !emailDec.Allowed
	return ResetDecision{IP: ipDec, Email: &emailDec, Blocked: blocked}
}

// CheckChat gates a chat request. When a ChatIP policy is configured the
// client IP is checked first, on its own window so chat traffic never
// consumes the anonymous password-reset IP budget; the per-user axis runs
// after. Without a ChatIP policy only the user axis applies: chat is always
// authenticated, so the user key is the finest stable identity.
func (g *Gate) CheckChat(ctx context.Context, ip, userID string) Decision {
	if g.cfg.ChatIP.Limit > 0 {
		ipDec, err := g.Evaluate(ctx, AxisChatIP, ip, ip)
		if err != nil {
			ipDec = g.outageDecision(AxisChatIP, err)
		}
		if !ipDec.Allowed {
			return ipDec
		}
	}

	dec, err := g.Evaluate(ctx, AxisUser, userID, ip)
	if err != nil {
		dec = g.outageDecision(AxisUser, err)
	}
	return dec
}
