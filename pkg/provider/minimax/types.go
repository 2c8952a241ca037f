package minimax

// MiniMax chat completion wire types.

type chatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Prompt           string        `json:"prompt"`
	RoleMeta         roleMeta      `json:"role_meta"`
	Stream           bool          `json:"stream"`
	TokensToGenerate *int          `json:"tokens_to_generate,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	SenderType string `json:"sender_type"`
	Text       string `json:"text"`
}

type roleMeta struct {
	UserName string `json:"user_name"`
	BotName  string `json:"bot_name"`
}

// chatCompletionResponse is both the non-streaming body and a single
// stream line. In a stream, intermediate lines carry choices[].delta and the
// terminal line carries a non-empty reply plus usage.
type chatCompletionResponse struct {
	ID       string       `json:"id,omitempty"`
	Created  int64        `json:"created,omitempty"`
	Model    string       `json:"model,omitempty"`
	Reply    string       `json:"reply"`
	Choices  []chatChoice `json:"choices"`
	Usage    *chatUsage   `json:"usage,omitempty"`
	BaseResp *baseResp    `json:"base_resp,omitempty"`
}

type chatChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text,omitempty"`
	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type chatUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}
