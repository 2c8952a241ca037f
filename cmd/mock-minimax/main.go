// Command mock-minimax runs a deterministic stand-in for the MiniMax chat
// completion API. It is used for local development and end-to-end tests of
// the gateway without real MiniMax credentials.
//
// Replies depend on the last user message:
//
//	"count from 1 to 5"   - replies "1, 2, 3, 4, 5"
//	"trigger rate limit"  - base_resp.status_code 1002
//	"trigger auth error"  - base_resp.status_code 1004
//	"trigger balance"     - base_resp.status_code 1008
//	"trigger http error"  - HTTP 502 with a plain-text body
//	anything else         - replies "Hello, nice day!"
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const chatCompletionPath = "/v1/text/chatcompletion"

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMux()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock minimax starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock minimax failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock minimax shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+chatCompletionPath, handleChatCompletion)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Wire types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Prompt   string        `json:"prompt"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	SenderType string `json:"sender_type"`
	Text       string `json:"text"`
}

type chatResponse struct {
	ID       string       `json:"id,omitempty"`
	Created  int64        `json:"created,omitempty"`
	Model    string       `json:"model,omitempty"`
	Reply    string       `json:"reply"`
	Choices  []chatChoice `json:"choices"`
	Usage    *chatUsage   `json:"usage,omitempty"`
	BaseResp baseResp     `json:"base_resp"`
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

// vendorErrors maps magic prompts to MiniMax status codes.
var vendorErrors = map[string]baseResp{
	"trigger rate limit": {StatusCode: 1002, StatusMsg: "rate limit exceeded"},
	"trigger auth error": {StatusCode: 1004, StatusMsg: "authentication failed"},
	"trigger balance":    {StatusCode: 1008, StatusMsg: "insufficient balance"},
}

// --- Handler ---

func handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") || r.URL.Query().Get("GroupId") == "" {
		writeJSON(w, chatResponse{BaseResp: baseResp{StatusCode: 1004, StatusMsg: "missing API key or GroupId"}})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, chatResponse{BaseResp: baseResp{StatusCode: 2013, StatusMsg: "invalid params: " + err.Error()}})
		return
	}

	prompt := strings.ToLower(lastUserText(&req))
	if strings.Contains(prompt, "trigger http error") {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	for magic, br := range vendorErrors {
		if strings.Contains(prompt, magic) {
			writeJSON(w, chatResponse{BaseResp: br})
			return
		}
	}

	tokens := replyTokens(prompt)
	usage := &chatUsage{TotalTokens: promptTokens(&req) + len(tokens)}

	if req.Stream {
		handleStreaming(w, &req, tokens, usage)
		return
	}

	reply := strings.Join(tokens, "")
	writeJSON(w, chatResponse{
		ID:      "mock-minimax-text",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Reply:   reply,
		Choices: []chatChoice{{Index: 0, Text: reply, FinishReason: "stop"}},
		Usage:   usage,
	})
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *chatRequest, tokens []string, usage *chatUsage) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, token := range tokens {
		writeLine(w, chatResponse{
			Model:   req.Model,
			Choices: []chatChoice{{Index: 0, Delta: token}},
		})
		flusher.Flush()
	}

	writeLine(w, chatResponse{
		ID:      "mock-minimax-stream",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Reply:   strings.Join(tokens, ""),
		Choices: []chatChoice{{Index: 0, FinishReason: "stop"}},
		Usage:   usage,
	})
	flusher.Flush()
}

func writeLine(w http.ResponseWriter, chunk chatResponse) {
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// --- Helpers ---

func replyTokens(prompt string) []string {
	if strings.Contains(prompt, "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}

// promptTokens approximates prompt size as a word count.
func promptTokens(req *chatRequest) int {
	n := len(strings.Fields(req.Prompt))
	for _, m := range req.Messages {
		n += len(strings.Fields(m.Text))
	}
	return n
}

func lastUserText(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].SenderType == "USER" {
			return req.Messages[i].Text
		}
	}
	return ""
}
