// Package engine implements the message-creation pathway. Engine is a
// transport.ChatHandler: it validates a chat request, calls the provider,
// writes the reply or its stream chunks, and publishes a MessageCreated
// event once the assistant message is complete.
package engine
