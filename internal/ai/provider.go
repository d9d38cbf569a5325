// ABOUTME: Text-generation provider contract for the tutoring chat
// ABOUTME: One-method interface so deployments pick the backend at construction

package ai

import (
	"context"
	"errors"
	"time"
)

// ErrGeneration indicates the text-generation backend errored or timed out.
var ErrGeneration = errors.New("generation failed")

// Message is one turn of dialogue sent to the backend.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// Options tune a single generation call. Zero values fall back to the
// provider's configured defaults.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Result is the backend's completed response with usage metadata.
type Result struct {
	Content        string
	TokenCount     int
	ModelName      string
	ResponseTimeMs int64
}

// Provider generates one assistant response from a dialogue. Implementations
// must honor ctx cancellation and deadlines.
type Provider interface {
	Generate(ctx context.Context, messages []Message, opts Options) (*Result, error)
}

// Elapsed returns milliseconds since start, floored at zero.
func Elapsed(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
