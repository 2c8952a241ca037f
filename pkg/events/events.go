// Package events delivers message-created notifications to registered
// handlers. Handlers are listed explicitly at startup and run
// synchronously in registration order.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/quota"
)

// MessageCreated is published once an assistant message is complete.
type MessageCreated struct {
	Message    *quota.Message
	Generation *quota.GenerationContext
}

// Handler reacts to a created message. A returned error is logged by the
// Dispatcher and does not affect other handlers or the caller.
type Handler interface {
	HandleMessageCreated(ctx context.Context, msg *quota.Message, gen *quota.GenerationContext) error
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(ctx context.Context, msg *quota.Message, gen *quota.GenerationContext) error

// HandleMessageCreated calls f(ctx, msg, gen).
func (f HandlerFunc) HandleMessageCreated(ctx context.Context, msg *quota.Message, gen *quota.GenerationContext) error {
	return f(ctx, msg, gen)
}

type subscription struct {
	name    string
	handler Handler
}

// Dispatcher fans a MessageCreated event out to its handlers.
// Subscribe during startup only; Publish is safe for concurrent use after that.
type Dispatcher struct {
	subs   []subscription
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Subscribe appends h under name. Handlers run in subscription order.
func (d *Dispatcher) Subscribe(name string, h Handler) {
	d.subs = append(d.subs, subscription{name: name, handler: h})
}

// Publish runs every handler for evt. Handler errors and panics are
// logged and swallowed.
func (d *Dispatcher) Publish(ctx context.Context, evt MessageCreated) {
	for _, sub := range d.subs {
		if err := d.run(ctx, sub, evt); err != nil {
			attrs := []any{"handler", sub.name, "error", err}
			if evt.Message != nil {
				attrs = append(attrs, "message_id", evt.Message.ID)
			}
			d.logger.ErrorContext(ctx, "message-created handler failed", attrs...)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, sub subscription, evt MessageCreated) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	debug.Log("engine", "dispatching message-created", "handler", sub.name)
	return sub.handler.HandleMessageCreated(ctx, evt.Message, evt.Generation)
}
