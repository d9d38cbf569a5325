// Package store provides persistent storage for tutor-gateway using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with specialized
// interfaces:
//
//   - SessionStore: Chat sessions and append-only messages
//   - UserStore: User accounts and password-reset tokens
//
// SQLiteStore implements all interfaces in a single struct plus two concerns
// consumed directly by the admission gate:
//
//   - IncrementAndCheck: atomic rate-limit counter windows (one UPSERT per call)
//   - AppendAdmissionEvent / ListAdmissionEvents: the gate's audit trail
//
// # Data Models
//
//   - Session: A chat session owned by a user, with derived message/token aggregates
//   - Message: One chat message (user, assistant, or system), ordered by created_at
//   - User: Account with bcrypt password hash and role (student/admin)
//   - ResetToken: Single-use password-reset token, stored hashed
//   - AdmissionEvent: Recorded outcome of one gate evaluation
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateSession: Session ID already exists
//   - ErrDuplicateUser: Email already registered
//
// All methods accept context.Context for cancellation support.
package store
