package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/mmbridge/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. An ID already in the context (set by the HTTP adapter from the
// X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Chat(ctx, req, w)
		})
	}
}

// NewRequestID creates a new random request ID.
func NewRequestID() string {
	return uuid.NewString()
}
