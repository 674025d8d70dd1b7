package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindNotConfigured ErrorKind = "not_configured"
	ErrorKindCriticalFetch ErrorKind = "critical_fetch"
	ErrorKindDecryption    ErrorKind = "decryption"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindInternal      ErrorKind = "internal"
)

// ProviderError describes why a provider result carries no usable totals.
type ProviderError struct {
	Kind    ErrorKind
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewProviderError(kind ErrorKind, format string, args ...any) *ProviderError {
	return &ProviderError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsProviderError converts an arbitrary failure into a ProviderError, keeping
// the kind when err already wraps one.
func AsProviderError(err error, fallback ErrorKind) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	msg := err.Error()
	if msg == "" {
		msg = "unknown error"
	}
	return &ProviderError{Kind: fallback, Message: msg}
}
