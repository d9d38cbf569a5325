// ABOUTME: Session listing endpoint for the authenticated user

package api

import (
	"net/http"
	"strconv"

	"github.com/codeyard/tutor-gateway/internal/auth"
)

// ListSessionsResponse is the JSON response for GET /api/sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// handleListSessions handles GET /api/sessions: the caller's sessions,
// most recently active first.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	authCtx := auth.MustFromContext(r.Context())

	limit := 0 // store default
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	sessions, err := s.chat.ListSessions(r.Context(), authCtx.UserID, limit)
	if err != nil {
		s.logger.Error("session list failed", "user_id", authCtx.UserID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := ListSessionsResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess))
	}
	s.sendJSON(w, http.StatusOK, resp)
}
