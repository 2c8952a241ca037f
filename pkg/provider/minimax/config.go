package minimax

import "time"

const (
	// DefaultBaseURL is the public MiniMax API host.
	DefaultBaseURL = "https://api.minimax.chat"

	// DefaultPrompt is sent when the conversation has no system message or
	// the system message is empty.
	DefaultPrompt = "你是一个什么都懂的专家"

	// DefaultTimeout bounds connecting and waiting for response headers.
	DefaultTimeout = 10 * time.Second

	chatCompletionPath = "/v1/text/chatcompletion"
)

// Config holds configuration for the MiniMax provider adapter.
type Config struct {
	// BaseURL is the MiniMax API URL (e.g., "https://api.minimax.chat").
	BaseURL string

	// APIKey and GroupID are the provider-issued credentials. A request may
	// override both.
	APIKey  string
	GroupID string

	// Timeout for individual HTTP requests. Defaults to 10s.
	Timeout time.Duration

	// DefaultPrompt replaces an absent or empty system message.
	DefaultPrompt string

	// UserName and BotName fill role_meta.
	UserName string
	BotName  string
}

// DefaultConfig returns a Config with the values MiniMax expects.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		DefaultPrompt: DefaultPrompt,
		UserName:      "我",
		BotName:       "专家",
	}
}
