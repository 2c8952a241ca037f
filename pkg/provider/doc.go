// Package provider defines the interface the engine uses to reach an LLM
// backend. The interface operates on mmbridge's own types (Request,
// api.ChatMessage); each adapter owns its vendor wire format. Only the
// MiniMax adapter is implemented.
package provider
