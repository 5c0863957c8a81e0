package generation

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a provider throttling signal. Backends wrap it so the
// retry loop can classify failures without inspecting error text.
var ErrRateLimited = errors.New("rate limited by provider")

// Kind is the closed set of failure classes a backend may report.
type Kind int

const (
	// KindOther is any failure that is not throttling.
	KindOther Kind = iota
	// KindRateLimited is provider-signalled throttling.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// ProviderError is a backend failure classified once at the adapter.
type ProviderError struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Err        error
}

// NewProviderError classifies err for provider. A nil err yields nil.
func NewProviderError(provider string, kind Kind, status int, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Kind: kind, Provider: provider, StatusCode: status, Err: err}
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports rate-limited provider errors as ErrRateLimited.
func (e *ProviderError) Is(target error) bool {
	return target == ErrRateLimited && e.Kind == KindRateLimited
}

// KindOf classifies err.
func KindOf(err error) Kind {
	if errors.Is(err, ErrRateLimited) {
		return KindRateLimited
	}
	return KindOther
}

// FatalError is returned once the retry budget is spent. It carries the
// cause of the final attempt.
type FatalError struct {
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
