package provider

import (
	"context"
	"iter"

	"github.com/rhuss/mmbridge/pkg/api"
)

// Provider abstracts a chat-completion backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// The sequences returned by GenerateStream are not: each one is a
// single-pass reader over one open HTTP response.
type Provider interface {
	// Name returns the provider identifier (e.g., "minimax").
	Name() string

	// Generate performs non-streaming inference and returns one assistant
	// message carrying usage and stop reason.
	Generate(ctx context.Context, req *Request) (*api.ChatMessage, error)

	// GenerateStream performs streaming inference. Connection and HTTP
	// status errors are returned directly. Decode and vendor errors are
	// yielded by the sequence, which stops after the first error. The last
	// message of a successful stream has empty content and carries usage.
	GenerateStream(ctx context.Context, req *Request) (iter.Seq2[*api.ChatMessage, error], error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
