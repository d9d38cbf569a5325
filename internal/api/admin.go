// ABOUTME: Admin endpoints - admission audit listing and session transcripts
// ABOUTME: Transcripts render stored markdown content to HTML

package api

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/codeyard/tutor-gateway/internal/chat"
	"github.com/codeyard/tutor-gateway/internal/store"
)

// AdmissionEventResponse is one audit entry in JSON responses.
type AdmissionEventResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Axis           string `json:"axis"`
	HashedIdentity string `json:"hashedIdentity"`
	IP             string `json:"ip"`
	Remaining      int    `json:"remaining"`
	ResetAt        string `json:"resetAt"`
	CreatedAt      string `json:"createdAt"`
}

// ListAdmissionsResponse is the JSON response for GET /api/admin/admissions.
type ListAdmissionsResponse struct {
	Events []AdmissionEventResponse `json:"events"`
}

// handleListAdmissions handles GET /api/admin/admissions with optional
// kind, axis, since (RFC3339), and limit query filters.
func (s *Server) handleListAdmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var filter store.AdmissionFilter
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := store.AdmissionKind(raw)
		if kind != store.AdmissionAdmitted && kind != store.AdmissionRateLimited {
			s.sendJSONError(w, http.StatusBadRequest, "unknown kind")
			return
		}
		filter.Kind = &kind
	}
	if raw := r.URL.Query().Get("axis"); raw != "" {
		filter.Axis = &raw
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.sendJSONError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &since
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = parsed
	}

	events, err := s.store.ListAdmissionEvents(r.Context(), filter)
	if err != nil {
		s.logger.Error("admission list failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := ListAdmissionsResponse{Events: make([]AdmissionEventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, AdmissionEventResponse{
			ID:             ev.ID,
			Kind:           string(ev.Kind),
			Axis:           ev.Axis,
			HashedIdentity: ev.HashedIdentity,
			IP:             ev.IP,
			Remaining:      ev.Remaining,
			ResetAt:        ev.ResetAt.UTC().Format(time.RFC3339),
			CreatedAt:      ev.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// handleTranscript handles GET /api/admin/transcripts/{sessionID}: the full
// session rendered as an HTML page, with message content treated as
// markdown.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/admin/transcripts/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "session id is required")
		return
	}

	hist, err := s.chat.GetHistory(r.Context(), sessionID, 0)
	if err != nil {
		if errors.Is(err, chat.ErrSessionMissing) {
			s.sendJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("transcript read failed", "session_id", sessionID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html><head><title>Transcript %s</title></head><body>\n", sessionID)
	fmt.Fprintf(&buf, "<h1>Session %s (%s)</h1>\n", sessionID, hist.Session.SessionType)
	for _, m := range hist.Messages {
		fmt.Fprintf(&buf, "<section><h3>%s &middot; %s</h3>\n", m.Role, m.CreatedAt.UTC().Format(time.RFC3339))
		if err := goldmark.Convert([]byte(m.Content), &buf); err != nil {
			s.logger.Warn("markdown render failed", "message_id", m.ID, "error", err)
			fmt.Fprintf(&buf, "<pre>%s</pre>", html.EscapeString(m.Content))
		}
		buf.WriteString("</section>\n")
	}
	buf.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
