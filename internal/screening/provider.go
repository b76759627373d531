// Package screening holds the watchlist provider clients. Each client makes
// exactly one attempt per call and classifies its failures; retry policy
// belongs to the pipeline, not here.
package screening

import (
	"context"
	"errors"
	"fmt"

	"idvet/internal/job"
)

// Provider names double as keys in a job's screening results.
const (
	ProviderWatchman      = "watchman"
	ProviderOpenSanctions = "opensanctions"
	ProviderDilisense     = "dilisense"
)

// FailureKind is the normalized failure taxonomy shared by all provider
// clients, including extraction.
type FailureKind string

const (
	// FailureNetwork indicates the provider could not be reached.
	FailureNetwork FailureKind = "network"

	// FailureTimeout indicates the provider took too long to respond.
	FailureTimeout FailureKind = "timeout"

	// FailureRateLimited indicates too many requests.
	FailureRateLimited FailureKind = "rate_limited"

	// FailureAuth indicates credential or permission issues.
	FailureAuth FailureKind = "auth"

	// FailureInvalidResponse indicates the provider returned data we could
	// not parse into the normalized shape.
	FailureInvalidResponse FailureKind = "invalid_response"

	// FailureProvider indicates the provider reported its own error.
	FailureProvider FailureKind = "provider_error"
)

// ProviderError wraps provider failures with normalized classification.
type ProviderError struct {
	Kind       FailureKind
	Provider   string
	Message    string
	Underlying error
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Retryable reports whether the failure is worth another attempt.
func (e *ProviderError) Retryable() bool {
	return e.Kind == FailureNetwork || e.Kind == FailureTimeout || e.Kind == FailureRateLimited
}

// NewProviderError creates a classified provider error.
func NewProviderError(kind FailureKind, provider, message string, underlying error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Message: message, Underlying: underlying}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// KindOf extracts the failure kind from an error, defaulting to
// provider_error for unclassified failures.
func KindOf(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureProvider
}

// Provider is the interface all screening sources implement. Search returns
// the normalized matches for the given identity, or a *ProviderError.
type Provider interface {
	Name() string
	Search(ctx context.Context, identity job.Identity) ([]job.Match, error)
}
