package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/observability"
	"github.com/rhuss/mmbridge/pkg/provider"
)

const providerName = "minimax"

// maxResponseBody caps the size of a non-streaming reply.
const maxResponseBody = 8 << 20

// Client implements provider.Provider for the MiniMax chat completion API.
type Client struct {
	cfg Config

	// client applies cfg.Timeout to the whole exchange.
	client *http.Client

	// streamClient shares the transport but has no overall deadline, so a
	// long stream is not cut off once headers have arrived in time. Each
	// read of the stream body is bounded by cfg.Timeout instead.
	streamClient *http.Client
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new Client with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("minimax: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("minimax: invalid BaseURL: %w", err)
	}

	// Normalize: remove trailing slash from base URL.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	defaults := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.DefaultPrompt == "" {
		cfg.DefaultPrompt = defaults.DefaultPrompt
	}
	if cfg.UserName == "" {
		cfg.UserName = defaults.UserName
	}
	if cfg.BotName == "" {
		cfg.BotName = defaults.BotName
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.Timeout}).DialContext
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Client{
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.Timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// Generate performs a non-streaming chat completion.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*api.ChatMessage, error) {
	reqCopy := *req
	reqCopy.Stream = false

	start := time.Now()
	httpResp, err := c.send(ctx, c.client, &reqCopy)
	if err != nil {
		recordRequest(reqCopy.Model, start, err)
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		apiErr := api.NewServerError(fmt.Sprintf("failed to read minimax response: %s", err.Error()))
		recordRequest(reqCopy.Model, start, apiErr)
		return nil, apiErr
	}

	chatResp, apiErr := decodePayload(data)
	if apiErr != nil {
		recordRequest(reqCopy.Model, start, apiErr)
		return nil, apiErr
	}

	msg := finalMessage(chatResp, chatResp.Reply)
	recordRequest(reqCopy.Model, start, nil)
	recordUsage(reqCopy.Model, msg.Usage)
	return msg, nil
}

// GenerateStream performs a streaming chat completion. The returned sequence
// reads the response body line by line as it is ranged over; see
// streamMessages for its lifetime rules.
func (c *Client) GenerateStream(ctx context.Context, req *provider.Request) (iter.Seq2[*api.ChatMessage, error], error) {
	reqCopy := *req
	reqCopy.Stream = true

	start := time.Now()
	httpResp, err := c.send(ctx, c.streamClient, &reqCopy)
	if err != nil {
		recordRequest(reqCopy.Model, start, err)
		return nil, err
	}

	return streamMessages(ctx, httpResp.Body, reqCopy.Model, start, c.cfg.Timeout), nil
}

// Close releases provider resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// send validates credentials, builds the request body, and performs the
// POST. On success the caller owns the response body.
func (c *Client) send(ctx context.Context, hc *http.Client, req *provider.Request) (*http.Response, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	groupID := req.GroupID
	if groupID == "" {
		groupID = c.cfg.GroupID
	}
	if apiKey == "" || groupID == "" {
		return nil, api.NewInvalidAPIKeyError("invalid API key or group ID")
	}

	chatReq, apiErr := c.translateRequest(req)
	if apiErr != nil {
		return nil, apiErr
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	endpoint := c.cfg.BaseURL + chatCompletionPath + "?" + url.Values{"GroupId": {groupID}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	debug.Log("providers", "minimax request",
		"model", req.Model,
		"stream", req.Stream,
		"messages", len(chatReq.Messages),
	)
	debug.Trace("providers", "minimax request body", "body", string(body))

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	return httpResp, nil
}

// decodePayload parses one MiniMax JSON document. A non-zero
// base_resp.status_code is reported as the mapped error regardless of the
// other fields.
func decodePayload(data []byte) (*chatCompletionResponse, *api.APIError) {
	if !gjson.ValidBytes(data) {
		return nil, api.NewServerError(fmt.Sprintf("malformed minimax payload: %s", debug.Truncate(string(data), 200)))
	}

	if code := gjson.GetBytes(data, "base_resp.status_code"); code.Exists() && code.Int() != 0 {
		return nil, MapStatusCode(int(code.Int()), gjson.GetBytes(data, "base_resp.status_msg").String())
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse minimax payload: %s", err.Error()))
	}
	return &chatResp, nil
}

// finalMessage builds the assistant message that closes a completion. MiniMax
// reports only total_tokens, so the whole count is attributed to the
// completion.
func finalMessage(resp *chatCompletionResponse, content string) *api.ChatMessage {
	var total int
	if resp.Usage != nil {
		total = resp.Usage.TotalTokens
	}

	msg := &api.ChatMessage{
		Role:    api.RoleAssistant,
		Content: content,
		Usage: &api.Usage{
			PromptTokens:     0,
			CompletionTokens: total,
			TotalTokens:      total,
		},
	}
	if len(resp.Choices) > 0 {
		msg.StopReason = resp.Choices[0].FinishReason
	}
	return msg
}

func recordRequest(model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			status = string(apiErr.Type)
		}
	}
	observability.ProviderRequestsTotal.WithLabelValues(providerName, model, status).Inc()
	observability.ProviderLatency.WithLabelValues(providerName, model).Observe(time.Since(start).Seconds())
}

func recordUsage(model string, usage *api.Usage) {
	if usage == nil {
		return
	}
	observability.ProviderTokensTotal.WithLabelValues(providerName, model, "input").Add(float64(usage.PromptTokens))
	observability.ProviderTokensTotal.WithLabelValues(providerName, model, "output").Add(float64(usage.CompletionTokens))
}
