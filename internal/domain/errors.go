// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrNothingToPersist is returned by token stores when no token has been obtained yet.
var ErrNothingToPersist = errors.New("no access token to save")

// ErrMalformedToken is returned by token stores for values that would not read back unchanged.
var ErrMalformedToken = errors.New("access token must not have surrounding whitespace")

// ErrNoToken is returned when the store holds no saved token.
var ErrNoToken = errors.New("no saved access token")

// ValidationError reports a required input missing before a URL can be built.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// ExchangeKind tags the variant of an ExchangeError.
type ExchangeKind int

const (
	NetworkFailure ExchangeKind = iota + 1
	RemoteRejected
	InvalidInputKind
)

func (k ExchangeKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case RemoteRejected:
		return "rejected by broker"
	case InvalidInputKind:
		return "invalid input"
	default:
		return "unknown"
	}
}

// ExchangeError is returned when trading an authorization code for a token fails.
// Code is only set for RemoteRejected, Field only for InvalidInputKind.
type ExchangeError struct {
	Kind    ExchangeKind
	Code    int
	Message string
	Field   string
}

func (e *ExchangeError) Error() string {
	switch e.Kind {
	case RemoteRejected:
		return fmt.Sprintf("token exchange %s (code %d): %s", e.Kind, e.Code, e.Message)
	case InvalidInputKind:
		return fmt.Sprintf("token exchange %s: %s is required", e.Kind, e.Field)
	default:
		return fmt.Sprintf("token exchange %s: %s", e.Kind, e.Message)
	}
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, &ExchangeError{Kind: RemoteRejected}).
func (e *ExchangeError) Is(target error) bool {
	t, ok := target.(*ExchangeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NetworkError builds a NetworkFailure ExchangeError.
func NetworkError(format string, args ...any) *ExchangeError {
	return &ExchangeError{Kind: NetworkFailure, Message: fmt.Sprintf(format, args...)}
}

// Rejected builds a RemoteRejected ExchangeError.
func Rejected(code int, message string) *ExchangeError {
	return &ExchangeError{Kind: RemoteRejected, Code: code, Message: message}
}

// InvalidInput builds an InvalidInput ExchangeError for the named field.
func InvalidInput(field string) *ExchangeError {
	return &ExchangeError{Kind: InvalidInputKind, Field: field}
}

// StoreError reports a failure to persist or load a token.
type StoreError struct {
	Op    string // "save" or "load"
	Path  string
	Cause error
}

func (e *StoreError) Error() string {
	msg := e.Op + " access token"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
