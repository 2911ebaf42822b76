package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects user input before any state change happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + e.Reason
}

// PersistenceError wraps a conversation store failure. Generation is never
// attempted for a message that failed to persist.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CompletionErrorKind classifies model-call failures for user-facing display.
type CompletionErrorKind string

const (
	ErrKindRateLimited          CompletionErrorKind = "rate_limited"
	ErrKindAuthenticationFailed CompletionErrorKind = "authentication_failed"
	ErrKindTimeout              CompletionErrorKind = "timeout"
	ErrKindNetworkUnavailable   CompletionErrorKind = "network_unavailable"
	ErrKindQuotaExceeded        CompletionErrorKind = "quota_exceeded"
	ErrKindModelUnavailable     CompletionErrorKind = "model_unavailable"
	ErrKindUnknown              CompletionErrorKind = "unknown"
)

// CompletionError is a classified model-call failure.
type CompletionError struct {
	Kind CompletionErrorKind
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the student for this failure.
func (e *CompletionError) UserMessage() string {
	switch e.Kind {
	case ErrKindRateLimited:
		return "The tutor is receiving too many requests right now. Please wait a moment and try again."
	case ErrKindAuthenticationFailed:
		return "The tutor service rejected the configured credentials. Please check the API key."
	case ErrKindTimeout:
		return "The tutor took too long to respond. Please try again."
	case ErrKindNetworkUnavailable:
		return "Could not reach the tutor service. Please check your connection and try again."
	case ErrKindQuotaExceeded:
		return "The tutor service usage quota has been exhausted."
	case ErrKindModelUnavailable:
		return "The configured model is currently unavailable. Please try again later."
	default:
		return "Something went wrong while generating a response. Please try again."
	}
}

// ClassifyCompletionError maps a raw provider error onto the failure
// taxonomy by inspecting its message content.
func ClassifyCompletionError(err error) *CompletionError {
	if err == nil {
		return nil
	}
	var already *CompletionError
	if errors.As(err, &already) {
		return already
	}

	kind := ErrKindUnknown
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		kind = ErrKindTimeout
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "429"):
		kind = ErrKindRateLimited
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "billing"),
		strings.Contains(msg, "insufficient funds"):
		kind = ErrKindQuotaExceeded
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"):
		kind = ErrKindAuthenticationFailed
	case strings.Contains(msg, "model"),
		strings.Contains(msg, "404"),
		strings.Contains(msg, "overloaded"):
		kind = ErrKindModelUnavailable
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "unreachable"),
		strings.Contains(msg, "connection reset"):
		kind = ErrKindNetworkUnavailable
	}
	return &CompletionError{Kind: kind, Err: err}
}
