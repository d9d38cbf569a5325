// ABOUTME: HTTP API server wiring handlers, middleware, and routes
// ABOUTME: Exposes password-reset, login, chat, session, and admin endpoints

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeyard/tutor-gateway/internal/auth"
	"github.com/codeyard/tutor-gateway/internal/chat"
	"github.com/codeyard/tutor-gateway/internal/gate"
	"github.com/codeyard/tutor-gateway/internal/store"
)

// Store is the persistence surface the API layer needs beyond the chat
// service: accounts, reset tokens, and the admission audit trail.
type Store interface {
	store.UserStore
	ListAdmissionEvents(ctx context.Context, f store.AdmissionFilter) ([]store.AdmissionEvent, error)
}

// Config holds API-level policy.
type Config struct {
	// ResetTokenTTL bounds how long a password-reset token stays valid.
	ResetTokenTTL time.Duration
	// SessionTokenTTL bounds issued login JWTs.
	SessionTokenTTL time.Duration
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	gate     *gate.Gate
	chat     *chat.Service
	store    Store
	verifier *auth.JWTVerifier
	cfg      Config
	logger   *slog.Logger
}

// NewServer creates an API server.
func NewServer(g *gate.Gate, chatSvc *chat.Service, st Store, verifier *auth.JWTVerifier, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.SessionTokenTTL <= 0 {
		cfg.SessionTokenTTL = 24 * time.Hour
	}
	return &Server{
		gate:     g,
		chat:     chatSvc,
		store:    st,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger.With("component", "api"),
	}
}

// Routes builds the full route table with auth middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	requireAuth := auth.HTTPAuthMiddleware(s.store, s.verifier)
	requireAdmin := auth.RequireAdminHTTP()

	mux.HandleFunc("/health", s.handleHealth)

	// Anonymous endpoints: the no-enumeration posture means these never
	// require or reveal an identity.
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/password-reset-request", s.handlePasswordResetRequest)
	mux.HandleFunc("/api/password-reset", s.handlePasswordReset)

	mux.Handle("/api/chat", requireAuth(http.HandlerFunc(s.handleChat)))
	mux.Handle("/api/sessions", requireAuth(http.HandlerFunc(s.handleListSessions)))

	mux.Handle("/api/admin/admissions", requireAuth(requireAdmin(http.HandlerFunc(s.handleListAdmissions))))
	mux.Handle("/api/admin/transcripts/", requireAuth(requireAdmin(http.HandlerFunc(s.handleTranscript))))

	return mux
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
