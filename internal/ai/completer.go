package ai

import (
	"context"
	"errors"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string
	Content string
}

// Completer produces the model's next message for a conversation.
//
// Implementations return *UpstreamError for transport, auth, quota and
// provider failures and ErrEmptyResponse when the provider answered without
// content.
type Completer interface {
	Complete(ctx context.Context, messages []Message, maxOutputTokens int) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message, maxOutputTokens int) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message, maxOutputTokens int) (string, error) {
	return f(ctx, messages, maxOutputTokens)
}

// WithTimeout bounds every call to c. A non-positive d uses DefaultTimeout.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		d = DefaultTimeout
	}
	return CompleterFunc(func(ctx context.Context, messages []Message, maxOutputTokens int) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		text, err := c.Complete(ctx, messages, maxOutputTokens)
		if err != nil && !IsUpstream(err) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &UpstreamError{Kind: KindTimeout, Provider: "unknown", Err: err}
		}
		return text, err
	})
}
