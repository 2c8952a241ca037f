// Package api defines the core types shared by the mmbridge gateway: chat
// messages, usage records, the inbound chat request, the outbound response
// and stream chunk, structured errors, and ID generation.
//
// The package performs no I/O. Vendor wire formats live in the provider
// adapters; this package only describes what the gateway itself speaks.
//
// Core types:
//   - [ChatMessage]: one turn of a conversation (system, user, or assistant)
//   - [Usage]: prompt/completion/total token counts
//   - [ChatRequest]: client request for a chat completion
//   - [ChatResponse]: non-streaming reply
//   - [StreamChunk]: one streamed delta or the terminal frame
//   - [APIError]: structured error with type, code, param, and message
package api
