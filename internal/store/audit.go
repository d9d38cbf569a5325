// ABOUTME: Admission audit log entity and store methods
// ABOUTME: Records every gate evaluation outcome for the dashboard's abuse view

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdmissionKind is the outcome class of a gate evaluation.
type AdmissionKind string

const (
	AdmissionAdmitted    AdmissionKind = "request_admitted"
	AdmissionRateLimited AdmissionKind = "rate_limited"
)

// AdmissionEvent is one recorded gate evaluation. HashedIdentity is the
// one-way hash of the identity on the evaluated axis; raw emails are never
// stored here.
type AdmissionEvent struct {
	ID             string
	Kind           AdmissionKind
	Axis           string // "ip", "email", "user"
	HashedIdentity string
	IP             string
	Remaining      int
	ResetAt        time.Time
	CreatedAt      time.Time
}

// AdmissionFilter specifies filtering options for listing admission events.
type AdmissionFilter struct {
	Kind  *AdmissionKind // filter by outcome
	Axis  *string        // filter by axis
	Since *time.Time     // events after this time
	Limit int            // max results (default 100, max 1000)
}

// AppendAdmissionEvent appends an event to the admission audit log.
// Generates ID and CreatedAt if not set.
func (s *SQLiteStore) AppendAdmissionEvent(ctx context.Context, e *AdmissionEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO admission_audit (id, kind, axis, hashed_identity, ip, remaining, reset_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		string(e.Kind),
		e.Axis,
		e.HashedIdentity,
		nullString(e.IP),
		e.Remaining,
		e.ResetAt.UTC().Format(time.RFC3339),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting admission event: %w", err)
	}

	s.logger.Debug("appended admission event",
		"id", e.ID,
		"kind", e.Kind,
		"axis", e.Axis,
	)
	return nil
}

// ListAdmissionEvents returns admission events matching the filter criteria.
// Results are returned newest first.
func (s *SQLiteStore) ListAdmissionEvents(ctx context.Context, f AdmissionFilter) ([]AdmissionEvent, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = 100
	case limit > 1000:
		limit = 1000
	}

	var kindStr, sinceStr *string
	if f.Kind != nil {
		k := string(*f.Kind)
		kindStr = &k
	}
	if f.Since != nil {
		t := f.Since.UTC().Format(time.RFC3339)
		sinceStr = &t
	}

	query := `
		SELECT id, kind, axis, hashed_identity, ip, remaining, reset_at, created_at
		FROM admission_audit
		WHERE (? IS NULL OR kind = ?)
		  AND (? IS NULL OR axis = ?)
		  AND (? IS NULL OR created_at >= ?)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query,
		kindStr, kindStr,
		f.Axis, f.Axis,
		sinceStr, sinceStr,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying admission audit: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []AdmissionEvent
	for rows.Next() {
		var e AdmissionEvent
		var kindStr, resetStr, createdStr string
		var ip *string

		if err := rows.Scan(&e.ID, &kindStr, &e.Axis, &e.HashedIdentity, &ip, &e.Remaining, &resetStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning admission event: %w", err)
		}

		e.Kind = AdmissionKind(kindStr)
		if ip != nil {
			e.IP = *ip
		}
		e.ResetAt, err = time.Parse(time.RFC3339, resetStr)
		if err != nil {
			return nil, fmt.Errorf("parsing reset_at: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating admission events: %w", err)
	}

	if events == nil {
		events = []AdmissionEvent{}
	}
	return events, nil
}
