package transport

import (
	"context"

	"github.com/rhuss/mmbridge/pkg/api"
)

// ChatHandler handles the create-chat-message operation. The implementation
// writes either stream chunks or a complete response to the ResponseWriter.
type ChatHandler interface {
	Chat(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error
}

// ChatHandlerFunc is an adapter that allows using an ordinary function
// as a ChatHandler.
type ChatHandlerFunc func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error

// Chat calls f(ctx, req, w).
func (f ChatHandlerFunc) Chat(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// HealthChecker reports whether a backing dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ResponseWriter abstracts streaming and non-streaming output for the handler.
//
// WriteChunk and WriteResponse are mutually exclusive on a single writer
// instance. Calling one after the other returns an error.
type ResponseWriter interface {
	// WriteChunk sends one streaming chunk.
	WriteChunk(ctx context.Context, chunk *api.StreamChunk) error

	// WriteResponse sends a complete non-streaming response.
	WriteResponse(ctx context.Context, resp *api.ChatResponse) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
