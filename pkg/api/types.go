package api

import "encoding/json"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Usage holds token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatMessage is one turn of a conversation. Assistant messages produced by
// a provider may carry Usage and StopReason; streamed delta messages carry
// neither.
type ChatMessage struct {
	ID         string `json:"id,omitempty"`
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	Usage      *Usage `json:"usage,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// Parameters holds optional generation parameters keyed by name
// (max_tokens, temperature, top_p). Values are kept as decoded so adapters
// can check their dynamic type before forwarding them.
type Parameters map[string]any

// ChatRequest is the body of POST /v1/chat/messages.
type ChatRequest struct {
	Model      string          `json:"model"`
	Messages   []ChatMessage   `json:"messages"`
	Parameters Parameters      `json:"parameters,omitempty"`
	Tools      json.RawMessage `json:"tools,omitempty"`
	Stop       []string        `json:"stop,omitempty"`
	Stream     bool            `json:"stream,omitempty"`
	User       string          `json:"user,omitempty"`
}

// ChatResponse is the non-streaming reply to a ChatRequest.
type ChatResponse struct {
	ID         string      `json:"id"`
	Object     string      `json:"object"`
	Model      string      `json:"model"`
	Message    ChatMessage `json:"message"`
	Usage      *Usage      `json:"usage,omitempty"`
	StopReason string      `json:"stop_reason,omitempty"`
	CreatedAt  int64       `json:"created_at"`
}

// StreamChunk is one SSE frame of a streaming reply. Delta frames carry
// text only; the terminal frame carries Usage and StopReason.
type StreamChunk struct {
	ID         string `json:"id"`
	Object     string `json:"object"`
	Model      string `json:"model"`
	Delta      string `json:"delta"`
	Usage      *Usage `json:"usage,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

const (
	ObjectChatMessage      = "chat.message"
	ObjectChatMessageChunk = "chat.message.chunk"
)
