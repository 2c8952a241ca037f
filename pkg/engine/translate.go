package engine

import (
	"time"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/provider"
)

// defaultStopReason is reported when the backend does not name one.
const defaultStopReason = "stop"

// translateRequest builds the provider request from an inbound chat request.
// Messages and parameters are shared, not copied; providers treat them as
// read-only.
func translateRequest(req *api.ChatRequest) *provider.Request {
	return &provider.Request{
		Model:      req.Model,
		Messages:   req.Messages,
		Parameters: req.Parameters,
		Tools:      req.Tools,
		Stop:       req.Stop,
		User:       req.User,
		Stream:     req.Stream,
	}
}

// buildResponse wraps a completed provider message as the API reply.
func buildResponse(id, model string, msg *api.ChatMessage) *api.ChatResponse {
	out := *msg
	out.ID = id
	if out.Role == "" {
		out.Role = api.RoleAssistant
	}
	out.Usage = nil
	out.StopReason = ""

	stop := msg.StopReason
	if stop == "" {
		stop = defaultStopReason
	}

	return &api.ChatResponse{
		ID:         id,
		Object:     api.ObjectChatMessage,
		Model:      model,
		Message:    out,
		Usage:      msg.Usage,
		StopReason: stop,
		CreatedAt:  time.Now().Unix(),
	}
}

// deltaChunk builds a text chunk.
func deltaChunk(id, model, delta string) *api.StreamChunk {
	return &api.StreamChunk{
		ID:     id,
		Object: api.ObjectChatMessageChunk,
		Model:  model,
		Delta:  delta,
	}
}

// finalChunk builds the terminal chunk. usage may be nil when the backend
// ended the stream without reporting it.
func finalChunk(id, model string, usage *api.Usage, stopReason string) *api.StreamChunk {
	if stopReason == "" {
		stopReason = defaultStopReason
	}
	c := deltaChunk(id, model, "")
	c.Usage = usage
	c.StopReason = stopReason
	return c
}
