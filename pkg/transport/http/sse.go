package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // at least one chunk written
	writerCompleted                    // terminal chunk, error frame, or JSON response sent
)

// sseResponseWriter implements transport.ResponseWriter for HTTP. Chunks are
// sent as SSE data frames; a complete response is sent as JSON.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState

	// onFirstChunk receives the message ID of the first chunk so the stream
	// can be registered for cancellation.
	onFirstChunk func(id string)
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter creates a ResponseWriter wrapping w. onFirstChunk may
// be nil.
func newSSEResponseWriter(w http.ResponseWriter, onFirstChunk func(id string)) *sseResponseWriter {
	return &sseResponseWriter{
		w:            w,
		rc:           http.NewResponseController(w),
		onFirstChunk: onFirstChunk,
	}
}

// isTerminal reports whether chunk ends the stream. Only the final chunk
// carries usage or a stop reason.
func isTerminal(chunk *api.StreamChunk) bool {
	return chunk.Usage != nil || chunk.StopReason != ""
}

// WriteChunk sends one chunk as
//
//	data: {json}\n
//	\n
//
// and after the terminal chunk also sends
//
//	data: [DONE]\n
//	\n
func (s *sseResponseWriter) WriteChunk(ctx context.Context, chunk *api.StreamChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write chunk: writer is completed")
	}

	if s.state == writerIdle {
		s.setStreamHeaders()
		s.state = writerStreaming
	}

	if s.onFirstChunk != nil && chunk.ID != "" {
		s.onFirstChunk(chunk.ID)
		s.onFirstChunk = nil
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if isTerminal(chunk) {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush [DONE]: %w", err)
		}
		s.state = writerCompleted
	}

	return nil
}

// WriteResponse sends a complete non-streaming JSON response.
func (s *sseResponseWriter) WriteResponse(ctx context.Context, resp *api.ChatResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseResponseWriter) Flush() error {
	return s.rc.Flush()
}

// writeError ends a started stream with
//
//	event: error\n
//	data: {"error":{...}}\n
//	\n
//
// It reports false when no stream is open, in which case the caller should
// write a plain JSON error instead.
func (s *sseResponseWriter) writeError(apiErr *api.APIError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerIdle:
		return false
	case writerCompleted:
		// A JSON response or the terminal chunk already went out.
		return true
	}

	data, err := json.Marshal(api.ErrorResponse{Error: apiErr})
	if err != nil {
		return true
	}
	fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", data)
	s.rc.Flush()
	s.state = writerCompleted
	return true
}

func (s *sseResponseWriter) setStreamHeaders() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}
