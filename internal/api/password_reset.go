// ABOUTME: Password-reset endpoints with admission gating and no-enumeration posture
// ABOUTME: Request flow always answers 202 unless a blocking axis is exhausted

package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/codeyard/tutor-gateway/internal/gate"
	"github.com/codeyard/tutor-gateway/internal/store"
)

// PasswordResetRequest is the JSON request body for POST /api/password-reset-request.
type PasswordResetRequest struct {
	Email string `json:"email,omitempty"`
}

// PasswordResetComplete is the JSON request body for POST /api/password-reset.
type PasswordResetComplete struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// setRateHeaders writes the standard rate-limit headers for one decision.
// prefix distinguishes the axes ("X-RateLimit" vs "X-RateLimit-Email").
func setRateHeaders(w http.ResponseWriter, prefix string, dec gate.Decision) {
	w.Header().Set(prefix+"-Limit", strconv.Itoa(dec.Limit))
	w.Header().Set(prefix+"-Remaining", strconv.Itoa(dec.Remaining))
	reset := int64(0)
	if !dec.ResetAt.IsZero() {
		reset = dec.ResetAt.Unix()
	}
	w.Header().Set(prefix+"-Reset", strconv.FormatInt(reset, 10))
}

// handlePasswordResetRequest handles POST /api/password-reset-request.
// The response is always success-shaped (202 {ok:true}) regardless of
// whether the email is registered, so the endpoint never reveals which
// accounts exist. Only an exhausted blocking axis yields 429.
func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req PasswordResetRequest
	if r.Body != nil {
		// A missing or malformed body is treated as "no email": the IP
		// axis still gets evaluated and answered.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res := s.gate.CheckPasswordReset(r.Context(), clientIP(r), req.Email)
	setRateHeaders(w, "X-RateLimit", res.IP)
	if res.Email != nil {
		setRateHeaders(w, "X-RateLimit-Email", *res.Email)
	}

	if res.Blocked {
		s.sendJSONError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	if res.Email != nil && res.Email.Allowed {
		s.issueResetToken(r, req.Email)
	}

	s.sendJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

// issueResetToken creates a reset token for a registered email. Best-effort:
// failures are logged and never change the response shape.
func (s *Server) issueResetToken(r *http.Request, email string) {
	user, err := s.store.GetUserByEmail(r.Context(), gate.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("reset token lookup failed", "error", err)
		}
		return
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		s.logger.Error("failed to generate reset token", "error", err)
		return
	}
	token := hex.EncodeToString(raw)

	now := time.Now()
	rec := &store.ResetToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hashResetToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
	}
	if err := s.store.CreateResetToken(r.Context(), rec); err != nil {
		s.logger.Error("failed to store reset token", "error", err)
		return
	}

	// Delivery is out of band (email service). The raw token only ever
	// appears in the delivery path, never in storage or logs.
	s.logger.Info("reset token issued", "user_id", user.ID, "token_id", rec.ID)
}

// hashResetToken returns the hex SHA-256 of a raw reset token. Only hashes
// are persisted, so a leaked table row cannot be replayed.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// handlePasswordReset handles POST /api/password-reset: consumes a pending
// reset token and replaces the account password.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req PasswordResetComplete
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" || len(req.NewPassword) < 8 {
		s.sendJSONError(w, http.StatusBadRequest, "token and a password of at least 8 characters are required")
		return
	}

	tok, err := s.store.GetResetTokenByHash(r.Context(), hashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		s.logger.Error("reset token lookup failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if tok.UsedAt != nil || time.Now().After(tok.ExpiresAt) {
		s.sendJSONError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.store.UpdateUserPassword(r.Context(), tok.UserID, string(hash)); err != nil {
		s.logger.Error("failed to update password", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.store.MarkResetTokenUsed(r.Context(), tok.ID); err != nil {
		// The password already changed; a consume failure only risks one
		// extra use inside the TTL. Log and continue.
		s.logger.Warn("failed to mark reset token used", "token_id", tok.ID, "error", err)
	}

	s.sendJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
