package embedding

import (
	"context"
	"errors"
)

// Provider defines the interface for generating text embeddings.
// Implementations call an external embedding backend; failures are wrapped
// in ErrUnavailable so callers can classify them uniformly.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var (
	// ErrUnavailable marks any failure of the external embedding backend.
	ErrUnavailable = errors.New("embedding provider unavailable")

	// ErrRateLimited marks an HTTP 429 from the embedding backend.
	ErrRateLimited = errors.New("embedding provider rate limited")

	// ErrQuotaExceeded marks a quota/payment rejection from the embedding backend.
	ErrQuotaExceeded = errors.New("embedding provider quota exceeded")
)

// statusError maps an HTTP status from an embedding backend to the
// matching sentinel so the recovery layer can pick the right strategy.
func statusError(status int) error {
	switch status {
	case 429:
		return ErrRateLimited
	case 402:
		return ErrQuotaExceeded
	default:
		return ErrUnavailable
	}
}
