package minimax

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/provider"
)

// senderTypes maps mmbridge roles to MiniMax sender_type values.
var senderTypes = map[api.Role]string{
	api.RoleUser:      "USER",
	api.RoleAssistant: "BOT",
}

// translateRequest builds the MiniMax request body. A leading system
// message becomes the prompt and is removed from the message list; at least
// one message must remain.
func (c *Client) translateRequest(req *provider.Request) (*chatCompletionRequest, *api.APIError) {
	messages := req.Messages
	if len(messages) == 0 {
		return nil, api.NewInvalidRequestError("messages", "at least one message is required")
	}

	prompt := c.cfg.DefaultPrompt
	if messages[0].Role == api.RoleSystem {
		if messages[0].Content != "" {
			prompt = messages[0].Content
		}
		messages = messages[1:]
	}

	if len(messages) == 0 {
		return nil, api.NewInvalidRequestError("messages", "at least one user message is required")
	}

	chatReq := &chatCompletionRequest{
		Model:    req.Model,
		Messages: make([]chatMessage, 0, len(messages)),
		Prompt:   prompt,
		RoleMeta: roleMeta{
			UserName: c.cfg.UserName,
			BotName:  c.cfg.BotName,
		},
		Stream: req.Stream,
	}

	for _, msg := range messages {
		chatReq.Messages = append(chatReq.Messages, chatMessage{
			SenderType: senderType(msg.Role),
			Text:       msg.Content,
		})
	}

	applyParameters(chatReq, req.Parameters)

	return chatReq, nil
}

func senderType(role api.Role) string {
	if st, ok := senderTypes[role]; ok {
		return st
	}
	return strings.ToUpper(string(role))
}

// applyParameters copies max_tokens, temperature and top_p into the request
// when the value has the expected type. Mismatched values are dropped, not
// coerced.
func applyParameters(chatReq *chatCompletionRequest, params api.Parameters) {
	if v, ok := params["max_tokens"]; ok {
		if n, ok := intParam(v); ok {
			chatReq.TokensToGenerate = &n
		}
	}
	if v, ok := params["temperature"]; ok {
		if f, ok := floatParam(v); ok {
			chatReq.Temperature = &f
		}
	}
	if v, ok := params["top_p"]; ok {
		if f, ok := floatParam(v); ok {
			chatReq.TopP = &f
		}
	}
}

// intParam accepts Go integer types and integral json.Number values.
// Booleans and floats are rejected.
func intParam(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case json.Number:
		if isFractional(n) {
			return 0, false
		}
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// floatParam accepts Go float types and json.Number values written with a
// fraction or exponent. Integers are rejected.
func floatParam(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case json.Number:
		if !isFractional(f) {
			return 0, false
		}
		parsed, err := f.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func isFractional(n json.Number) bool {
	return strings.ContainsAny(string(n), ".eE")
}
