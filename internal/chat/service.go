// ABOUTME: ChatService is the central layer for session and message persistence
// ABOUTME: All messages flow through here - history is the source of truth, not a side effect

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeyard/tutor-gateway/internal/ai"
	"github.com/codeyard/tutor-gateway/internal/store"
)

// Service errors
var (
	ErrEmptyContent   = errors.New("message content must not be empty")
	ErrSessionMissing = errors.New("session not found")
)

// SessionStore defines what the service needs from storage
type SessionStore interface {
	CreateSession(ctx context.Context, sess *store.Session) error
	GetSession(ctx context.Context, id string) (*store.Session, error)
	ListUserSessions(ctx context.Context, userID string, limit int) ([]*store.Session, error)

	SaveMessage(ctx context.Context, msg *store.Message) error
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*store.Message, error)
	SumSessionTokens(ctx context.Context, sessionID string) (int, error)
}

// Service owns session resolution and append-only message storage, and
// drives the text-generation backend for each chat turn.
type Service struct {
	store    SessionStore
	provider ai.Provider
	logger   *slog.Logger

	// systemPrompt is prepended to every generation call.
	systemPrompt string
	// contextWindow caps how many stored messages are replayed to the
	// backend as conversation context.
	contextWindow int
	// genTimeout bounds a single generation call.
	genTimeout time.Duration
	genOpts    ai.Options
}

// Config tunes the chat service.
type Config struct {
	SystemPrompt  string
	ContextWindow int
	GenTimeout    time.Duration
	MaxTokens     int
	Temperature   float64
	Model         string
}

const (
	defaultContextWindow = 20
	defaultGenTimeout    = 60 * time.Second
)

// New creates a chat Service
func New(st SessionStore, provider ai.Provider, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = defaultContextWindow
	}
	if cfg.GenTimeout <= 0 {
		cfg.GenTimeout = defaultGenTimeout
	}
	return &Service{
		store:         st,
		provider:      provider,
		logger:        logger.With("component", "chat"),
		systemPrompt:  cfg.SystemPrompt,
		contextWindow: cfg.ContextWindow,
		genTimeout:    cfg.GenTimeout,
		genOpts: ai.Options{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}
}

// GetOrCreateSession resolves a client-supplied session ID to a session
// owned by userID, or creates a new one. A session ID that does not resolve,
// or that belongs to another user, silently yields a fresh session instead
// of an error so a forged or stale ID can never reach someone else's
// history.
func (s *Service) GetOrCreateSession(ctx context.Context, clientSessionID, userID, sessionType string) (*store.Session, error) {
	if !store.ValidSessionType(sessionType) {
		sessionType = store.SessionTypeGeneral
	}

	if clientSessionID != "" {
		sess, err := s.store.GetSession(ctx, clientSessionID)
		if err == nil && sess.UserID == userID {
			return sess, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("session lookup failed: %w", err)
		}
		if err == nil {
			s.logger.Warn("session ownership mismatch, creating new session",
				"session_id", clientSessionID,
				"user_id", userID)
		}
	}

	now := time.Now()
	sess := &store.Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionType: sessionType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		// Another request may have created a session with this ID between
		// generation and insert. UUIDs make that vanishingly rare, but the
		// re-lookup keeps the call safe to retry.
		if errors.Is(err, store.ErrDuplicateSession) {
			existing, lookupErr := s.store.GetSession(ctx, sess.ID)
			if lookupErr == nil && existing.UserID == userID {
				s.logger.Debug("found existing session after race", "session_id", existing.ID)
				return existing, nil
			}
		}
		return nil, fmt.Errorf("session creation failed: %w", err)
	}
	s.logger.Debug("session created",
		"session_id", sess.ID,
		"user_id", userID,
		"session_type", sessionType)
	return sess, nil
}

// MessageMeta carries optional generation metadata for a stored message.
type MessageMeta struct {
	TokenCount     int
	ModelName      string
	ResponseTimeMs int64
}

// StoreMessage appends one message to a session. Content must be non-empty
// after trimming; nothing is written otherwise.
func (s *Service) StoreMessage(ctx context.Context, sessionID, role, content string, meta *MessageMeta) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	msg := &store.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if meta != nil {
		msg.TokenCount = meta.TokenCount
		msg.ModelName = meta.ModelName
		msg.ResponseTimeMs = meta.ResponseTimeMs
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record message: %w", err)
	}

	s.logger.Debug("message recorded",
		"session_id", sessionID,
		"message_id", msg.ID,
		"role", role)
	return msg, nil
}

// History is a bounded read-back window over one session plus usage totals.
type History struct {
	Session *store.Session
	// Messages holds at most the requested limit of most-recent messages,
	// in chronological order.
	Messages []*store.Message
	// TotalTokens sums token counts across ALL messages in the session,
	// not just the returned window.
	TotalTokens int
}

// GetHistory returns the most recent messages of a session in chronological
// order. A session with no messages yields an empty sequence, not an error.
func (s *Service) GetHistory(ctx context.Context, sessionID string, limit int) (*History, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionMissing
		}
		return nil, err
	}

	messages, err := s.store.GetSessionMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	totalTokens, err := s.store.SumSessionTokens(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &History{
		Session:     sess,
		Messages:    messages,
		TotalTokens: totalTokens,
	}, nil
}

// ListSessions returns the user's sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]*store.Session, error) {
	return s.store.ListUserSessions(ctx, userID, limit)
}

// SendResult is the outcome of one full chat turn.
type SendResult struct {
	SessionID   string
	UserMessage *store.Message
	Reply       *store.Message
	TotalTokens int
}

// Send runs one chat turn: resolve the session, record the user message,
// assemble bounded context, call the backend, and record the reply.
//
// Key principle: record first, then act. The user message is saved BEFORE
// the generation call, so a backend failure still leaves a record; the
// stored user message is deliberately not rolled back (a retry would
// duplicate it).
func (s *Service) Send(ctx context.Context, clientSessionID, userID, sessionType, content string) (*SendResult, error) {
	sess, err := s.GetOrCreateSession(ctx, clientSessionID, userID, sessionType)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.StoreMessage(ctx, sess.ID, store.RoleUser, content, nil)
	if err != nil {
		return nil, err
	}

	prompt, err := s.buildPrompt(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("context assembly failed: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	result, err := s.provider.Generate(genCtx, prompt, s.genOpts)
	if err != nil {
		s.logger.Error("generation failed",
			"session_id", sess.ID,
			"message_id", userMsg.ID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ai.ErrGeneration, err)
	}

	reply, err := s.StoreMessage(ctx, sess.ID, store.RoleAssistant, result.Content, &MessageMeta{
		TokenCount:     result.TokenCount,
		ModelName:      result.ModelName,
		ResponseTimeMs: result.ResponseTimeMs,
	})
	if err != nil {
		return nil, err
	}

	totalTokens, err := s.store.SumSessionTokens(ctx, sess.ID)
	if err != nil {
		s.logger.Warn("failed to sum session tokens", "session_id", sess.ID, "error", err)
		totalTokens = result.TokenCount
	}

	return &SendResult{
		SessionID:   sess.ID,
		UserMessage: userMsg,
		Reply:       reply,
		TotalTokens: totalTokens,
	}, nil
}

// buildPrompt assembles the generation input: optional system prompt plus
// the most recent stored messages in chronological order. The just-stored
// user message is included by the read-back.
func (s *Service) buildPrompt(ctx context.Context, sessionID string) ([]ai.Message, error) {
	recent, err := s.store.GetSessionMessages(ctx, sessionID, s.contextWindow)
	if err != nil {
		return nil, err
	}

	prompt := make([]ai.Message, 0, len(recent)+1)
	if s.systemPrompt != "" {
		prompt = append(prompt, ai.Message{Role: store.RoleSystem, Content: s.systemPrompt})
	}
	for _, m := range recent {
		prompt = append(prompt, ai.Message{Role: m.Role, Content: m.Content})
	}
	return prompt, nil
}
