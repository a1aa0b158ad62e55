package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("ai: empty response")

// Kind categorizes upstream failures for logging.
type Kind string

const (
	KindAuth       Kind = "auth_error"  // 401/403, bad or revoked key
	KindRateLimit  Kind = "rate_limit"  // 429, quota exhausted
	KindServer     Kind = "server"      // 5xx
	KindBadRequest Kind = "bad_request" // other 4xx
	KindTimeout    Kind = "timeout"     // deadline exceeded
	KindNetwork    Kind = "network"     // no HTTP response at all
)

// UpstreamError wraps a failed completion call.
type UpstreamError struct {
	Kind     Kind
	Provider string
	Status   int // HTTP status when one was received
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the same request might succeed later. The relay
// never retries; the flag only goes into logs.
func (e *UpstreamError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindServer, KindTimeout, KindNetwork:
		return true
	}
	return false
}

// IsUpstream reports whether err is, or wraps, an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// classify builds an UpstreamError from an HTTP status (0 when unknown) and
// the provider's error.
func classify(provider string, status int, err error) *UpstreamError {
	ue := &UpstreamError{Provider: provider, Status: status, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ue.Kind = KindTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		ue.Kind = KindAuth
	case status == http.StatusTooManyRequests:
		ue.Kind = KindRateLimit
	case status >= 500:
		ue.Kind = KindServer
	case status >= 400:
		ue.Kind = KindBadRequest
	case containsAny(err.Error(), "timeout", "deadline exceeded"):
		ue.Kind = KindTimeout
	default:
		ue.Kind = KindNetwork
	}
	return ue
}

func containsAny(s string, patterns ...string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
