// Package ai abstracts the text-generation backend behind a one-method
// Provider interface. The concrete implementation is chosen at construction
// time; OpenAIProvider speaks the OpenAI-compatible /chat/completions shape
// used by most hosted backends.
package ai
