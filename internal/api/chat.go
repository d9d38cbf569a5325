// ABOUTME: Chat endpoints - one POST turn through the tutor, GET history read-back
// ABOUTME: Admission-gated per user; every turn persists before generation

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codeyard/tutor-gateway/internal/ai"
	"github.com/codeyard/tutor-gateway/internal/auth"
	"github.com/codeyard/tutor-gateway/internal/chat"
	"github.com/codeyard/tutor-gateway/internal/store"
)

// ChatMessage is one dialogue turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the JSON request body for POST /api/chat.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	SessionID   string        `json:"sessionId,omitempty"`
	SessionType string        `json:"sessionType,omitempty"`
}

// ChatMetadata carries usage accounting for a chat response.
type ChatMetadata struct {
	TokenCount     int    `json:"tokenCount"`
	ModelName      string `json:"modelName"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	TotalTokens    int    `json:"totalTokens"`
}

// ChatResponse is the JSON response for POST /api/chat.
type ChatResponse struct {
	Message   string       `json:"message"`
	SessionID string       `json:"sessionId"`
	Metadata  ChatMetadata `json:"metadata"`
}

// MessageResponse is one stored message in history responses.
type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// HistoryResponse is the JSON response for GET /api/chat.
type HistoryResponse struct {
	Data     []MessageResponse `json:"data"`
	Session  SessionResponse   `json:"session"`
	Metadata struct {
		TotalTokens  int `json:"totalTokens"`
		MessageCount int `json:"messageCount"`
	} `json:"metadata"`
}

// handleChat dispatches POST (send a turn) and GET (read history).
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSendChat(w, r)
	case http.MethodGet:
		s.handleChatHistory(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		s.sendJSONError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if strings.TrimSpace(last.Content) == "" {
		s.sendJSONError(w, http.StatusBadRequest, "message content must not be empty")
		return
	}

	dec := s.gate.CheckChat(r.Context(), clientIP(r), authCtx.UserID)
	setRateHeaders(w, "X-RateLimit", dec)
	if !dec.Allowed {
		s.sendJSONError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	result, err := s.chat.Send(r.Context(), req.SessionID, authCtx.UserID, req.SessionType, last.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyContent):
			s.sendJSONError(w, http.StatusBadRequest, "message content must not be empty")
		case errors.Is(err, ai.ErrGeneration):
			s.logger.Error("generation failed", "user_id", authCtx.UserID, "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		default:
			s.logger.Error("chat turn failed", "user_id", authCtx.UserID, "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	s.sendJSON(w, http.StatusOK, ChatResponse{
		Message:   result.Reply.Content,
		SessionID: result.SessionID,
		Metadata: ChatMetadata{
			TokenCount:     result.Reply.TokenCount,
			ModelName:      result.Reply.ModelName,
			ResponseTimeMs: result.Reply.ResponseTimeMs,
			TotalTokens:    result.TotalTokens,
		},
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	hist, err := s.chat.GetHistory(r.Context(), sessionID, limit)
	if err != nil {
		if errors.Is(err, chat.ErrSessionMissing) {
			s.sendJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("history read failed", "session_id", sessionID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	// Foreign sessions look identical to missing ones.
	if hist.Session.UserID != authCtx.UserID && !authCtx.IsAdmin() {
		s.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	resp := HistoryResponse{
		Data:    make([]MessageResponse, 0, len(hist.Messages)),
		Session: toSessionResponse(hist.Session),
	}
	for _, m := range hist.Messages {
		resp.Data = append(resp.Data, MessageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	resp.Metadata.TotalTokens = hist.TotalTokens
	resp.Metadata.MessageCount = hist.Session.MessageCount
	s.sendJSON(w, http.StatusOK, resp)
}

// SessionResponse is one session in JSON responses.
type SessionResponse struct {
	ID           string `json:"id"`
	SessionType  string `json:"sessionType"`
	MessageCount int    `json:"messageCount"`
	TotalTokens  int    `json:"totalTokens"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toSessionResponse(sess *store.Session) SessionResponse {
	return SessionResponse{
		ID:           sess.ID,
		SessionType:  sess.SessionType,
		MessageCount: sess.MessageCount,
		TotalTokens:  sess.TotalTokens,
		CreatedAt:    sess.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    sess.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
