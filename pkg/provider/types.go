package provider

import (
	"encoding/json"

	"github.com/rhuss/mmbridge/pkg/api"
)

// Request is the backend-facing request. It contains only what an adapter
// needs, stripped of transport and storage concerns.
type Request struct {
	Model    string
	Messages []api.ChatMessage

	// Parameters are forwarded only when their dynamic type matches what
	// the backend expects.
	Parameters api.Parameters

	// Tools, Stop and User are accepted for interface completeness. The
	// MiniMax adapter does not forward them.
	Tools json.RawMessage
	Stop  []string
	User  string

	Stream bool

	// APIKey and GroupID override the adapter's configured credentials
	// when non-empty.
	APIKey  string
	GroupID string
}
