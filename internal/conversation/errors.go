package conversation

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned for a blank /ask question.
var ErrEmptyQuestion = errors.New("conversation: question is required")

// ProviderError reports a failed call to a completion or embedding provider.
// It is recoverable per request.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("conversation: %s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// ParseError reports a provider reply that could not be interpreted.
type ParseError struct {
	What string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("conversation: could not parse %s from %q", e.What, truncate(e.Raw, 80))
	}
	return fmt.Sprintf("conversation: could not parse %s from %q: %v", e.What, truncate(e.Raw, 80), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a profile value that fails its format rule. The
// field is dropped rather than defaulted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conversation: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
