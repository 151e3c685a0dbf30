package logger

import (
	"context"
	"errors"
)

// ErrNoRequestIDInContext is returned when the context carries no request id.
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// WithRequestID attaches a request id to the context. FromContext picks it
// up and stamps every log line emitted under that context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromRequestIDContext extracts the request id from the context.
func FromRequestIDContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}
