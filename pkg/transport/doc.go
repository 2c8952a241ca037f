// Package transport defines the handler contract and middleware chain for
// the mmbridge HTTP/SSE surface.
//
// The HTTP adapter in pkg/transport/http decodes POST /v1/chat/messages into
// an api.ChatRequest, runs it through the middleware chain, and hands it to
// a ChatHandler (the engine) together with a ResponseWriter that renders
// either one JSON body or a sequence of SSE chunks.
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. The InFlightRegistry
// lets a DELETE request cancel a stream that is still running.
package transport
