package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable marks any failure of the external completion backend.
	ErrUnavailable = errors.New("completion provider unavailable")

	// ErrRateLimited marks an HTTP 429 from the completion backend.
	ErrRateLimited = errors.New("completion provider rate limited")

	// ErrQuotaExceeded marks a quota/payment rejection from the completion backend.
	ErrQuotaExceeded = errors.New("completion provider quota exceeded")
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// CompletionProvider defines the contract for any completion backend.
// Complete conditions the reply on the supplied context documents; pass an
// empty slice for a plain completion. Failures wrap ErrUnavailable (or the
// rate-limit/quota sentinels) so the recovery layer can classify them.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string, contextDocs []string, options ...Option) (string, error)

	// Chat sends a full conversation history to the model.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
}
