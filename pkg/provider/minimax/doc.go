// Package minimax implements the Provider interface for the MiniMax chat
// completion API (/v1/text/chatcompletion). It translates mmbridge chat
// messages into MiniMax's sender_type/text format, extracts a leading system
// message into the prompt field, forwards only type-matched generation
// parameters, and decodes both the single JSON reply and the line-delimited
// stream into normalized assistant messages.
//
// MiniMax reports most failures inside a 200 response via
// base_resp.status_code. Those codes are mapped to api error types through a
// static table (see errors.go).
package minimax
