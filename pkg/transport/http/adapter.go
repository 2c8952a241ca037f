package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/transport"
)

const (
	// ChatMessagesPath is the create-chat-message route.
	ChatMessagesPath = "/v1/chat/messages"
)

// Adapter serves the chat-message API over HTTP.
type Adapter struct {
	handler  transport.ChatHandler
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter for handler. Middleware is applied to
// the handler in the given order.
func NewAdapter(handler transport.ChatHandler, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		handler:  handler,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST "+ChatMessagesPath, a.handleCreateMessage)
	a.mux.HandleFunc("DELETE "+ChatMessagesPath+"/{id}", a.handleCancelMessage)

	return a
}

// Handler returns the http.Handler for this adapter, including request ID
// propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A client
// supplied ID is kept, otherwise one is generated; either way it goes into
// the context and is echoed in the response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter injects the X-Request-ID header before the first
// write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	w.ensureRequestIDHeader()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleCreateMessage handles POST /v1/chat/messages.
func (a *Adapter) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	req, apiErr, status := decodeChatRequest(r)
	if apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, status)
		return
	}

	if req.Stream {
		a.handleStreamingMessage(w, r, req)
		return
	}

	rw := newSSEResponseWriter(w, nil)
	if err := a.handler.Chat(r.Context(), req, rw); err != nil {
		writeHandlerError(w, rw, err)
	}
}

// decodeChatRequest reads the request body. Numbers are kept as json.Number
// so integer and fractional parameter values stay distinguishable.
func decodeChatRequest(r *http.Request) (*api.ChatRequest, *api.APIError, int) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var req api.ChatRequest
	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, api.NewInvalidRequestError("body",
				fmt.Sprintf("request body too large (max %d bytes)", maxBytesErr.Limit),
			), http.StatusRequestEntityTooLarge
		}
		return nil, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()), http.StatusBadRequest
	}
	return &req, nil, 0
}

// handleStreamingMessage handles POST requests with stream: true. The stream
// is cancellable through DELETE once its first chunk carries the message ID.
func (a *Adapter) handleStreamingMessage(w http.ResponseWriter, r *http.Request, req *api.ChatRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var release func()
	rw := newSSEResponseWriter(w, func(id string) {
		release = a.inflight.Register(id, cancel)
	})

	err := a.handler.Chat(ctx, req, rw)

	if release != nil {
		release()
	}

	if err == nil {
		return
	}
	if r.Context().Err() != nil {
		// Client went away; nobody is listening for an error frame.
		debug.Log("transport", "stream ended after client disconnect", "error", err)
		return
	}
	if ctx.Err() != nil {
		err = api.NewServerError("message generation was cancelled")
	}
	writeHandlerError(w, rw, err)
}

// handleCancelMessage handles DELETE /v1/chat/messages/{id}. It stops a
// running stream; finished or unknown messages are reported as not found.
func (a *Adapter) handleCancelMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateMessageID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed message ID"),
			http.StatusBadRequest,
		)
		return
	}

	if !a.inflight.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("no running message "+id))
		return
	}

	debug.Log("transport", "stream cancelled", "message_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// writeHandlerError writes an error from the handler. Once streaming has
// started it ends the stream with an error frame, otherwise it writes a JSON
// error response.
func writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	apiErr := transport.AsAPIError(err)
	if rw.writeError(apiErr) {
		return
	}
	transport.WriteAPIError(w, apiErr)
}
