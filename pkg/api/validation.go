package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 1 << 20, // 1MB per message
	}
}

// ValidateChatRequest checks the structure of a ChatRequest. It returns an
// *APIError describing the first failure, or nil if the request is valid.
//
// An empty message list is not rejected here. The provider adapter owns that
// rule because it also applies after a leading system message is stripped.
func ValidateChatRequest(req *ChatRequest, cfg ValidationConfig) *APIError {
	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d", cfg.MaxMessages))
	}

	for i, msg := range req.Messages {
		if !msg.Role.Valid() {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unknown role %q", msg.Role))
		}
		if cfg.MaxContentSize > 0 && len(msg.Content) > cfg.MaxContentSize {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].content", i),
				fmt.Sprintf("content exceeds maximum of %d bytes", cfg.MaxContentSize))
		}
		if msg.Role == RoleSystem && i > 0 {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				"system message is only allowed as the first message")
		}
	}

	return nil
}
