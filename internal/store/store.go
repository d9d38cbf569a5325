// ABOUTME: Store interface and data types for tutor-gateway persistence
// ABOUTME: Defines Session, Message, User structs and the interfaces consumed by the core

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateSession is returned when trying to create a session that already exists
var ErrDuplicateSession = errors.New("session already exists")

// ErrDuplicateUser is returned when trying to create a user with an email that is taken
var ErrDuplicateUser = errors.New("user already exists")

// SessionType constants for chat session types
const (
	SessionTypePractice = "practice"
	SessionTypeTutoring = "tutoring"
	SessionTypeReview   = "review"
	SessionTypeGeneral  = "general"
)

// ValidSessionType reports whether t is a known session type.
func ValidSessionType(t string) bool {
	switch t {
	case SessionTypePractice, SessionTypeTutoring, SessionTypeReview, SessionTypeGeneral:
		return true
	}
	return false
}

// Session represents a durable chat session owned by a user.
// MessageCount and TotalTokens are derived aggregates maintained by the
// persistence layer on every message insert; the core never writes them.
type Session struct {
	ID           string
	UserID       string
	SessionType  string // "practice", "tutoring", "review", "general"
	MessageCount int
	TotalTokens  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MessageRole constants for chat messages
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single message within a session. Append-only,
// ordered by CreatedAt within its session.
type Message struct {
	ID             string
	SessionID      string
	Role           string // "user", "assistant", "system"
	Content        string
	TokenCount     int
	ModelName      string
	ResponseTimeMs int64
	CreatedAt      time.Time
}

// User represents an account (bootcamp student or admin).
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         string // "student" or "admin"
	CreatedAt    time.Time
}

// User role constants
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ResetToken is a single-use password-reset token. Only the SHA-256 hash of
// the token is stored; the raw value is returned to the caller once.
type ResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// SessionStore defines session and message persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListUserSessions(ctx context.Context, userID string, limit int) ([]*Session, error)

	SaveMessage(ctx context.Context, msg *Message) error
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)
	SumSessionTokens(ctx context.Context, sessionID string) (int, error)
}

// UserStore defines account and reset-token persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	CreateResetToken(ctx context.Context, tok *ResetToken) error
	GetResetTokenByHash(ctx context.Context, tokenHash string) (*ResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id string) error
}
