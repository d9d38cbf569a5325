// ABOUTME: Counter key construction and identity hashing for admission axes
// ABOUTME: Prefixes keys per axis so different axes never share counters

package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Axis identifies an independent identity dimension with its own counter.
type Axis string

const (
	AxisIP     Axis = "ip"
	AxisEmail  Axis = "email"
	AxisUser   Axis = "user"
	AxisChatIP Axis = "chat_ip"
)

// IPKey returns the counter key for a client IP address.
func IPKey(ip string) string {
	return "ip:" + ip
}

// ChatIPKey returns the counter key for a client IP on the chat axis.
// Distinct from IPKey so chat traffic never consumes the password-reset
// IP window.
func ChatIPKey(ip string) string {
	return "ci:" + ip
}

// EmailKey returns the counter key for an email address. Emails are
// normalized (trimmed, lowercased) so "A@x.com" and "a@x.com " count
// against the same window.
func EmailKey(email string) string {
	return "e:" + NormalizeEmail(email)
}

// UserKey returns the counter key for an authenticated user ID.
func UserKey(userID string) string {
	return "u:" + userID
}

// NormalizeEmail trims whitespace and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashIdentity returns the hex-encoded SHA-256 of an identity string.
// Used so audit events never store raw emails.
func HashIdentity(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}
