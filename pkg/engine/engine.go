package engine

import (
	"context"
	"fmt"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/provider"
	"github.com/rhuss/mmbridge/pkg/quota"
	"github.com/rhuss/mmbridge/pkg/transport"
)

// Engine orchestrates request processing between the transport layer
// and the provider backend. It implements transport.ChatHandler.
type Engine struct {
	provider  provider.Provider
	publisher Publisher
	lookup    quota.ConfigLookup
	cfg       Config
}

// Ensure Engine implements transport.ChatHandler at compile time.
var _ transport.ChatHandler = (*Engine)(nil)

// New creates a new Engine. The provider must not be nil. publisher and
// lookup may be nil, in which case no events are published or every
// tenant gets the zero provider configuration.
func New(p provider.Provider, publisher Publisher, lookup quota.ConfigLookup, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	return &Engine{
		provider:  p,
		publisher: publisher,
		lookup:    lookup,
		cfg:       cfg,
	}, nil
}

// Chat handles a non-streaming or streaming chat request.
func (e *Engine) Chat(ctx context.Context, req *api.ChatRequest, w transport.ResponseWriter) error {
	if req.Model == "" {
		if e.cfg.DefaultModel == "" {
			return api.NewInvalidRequestError("model", "model is required")
		}
		req.Model = e.cfg.DefaultModel
	}

	if apiErr := api.ValidateChatRequest(req, e.cfg.validation()); apiErr != nil {
		return apiErr
	}

	provReq := translateRequest(req)

	if req.Stream {
		return e.chatStream(ctx, provReq, w)
	}
	return e.chatOnce(ctx, provReq, w)
}

// chatOnce runs a non-streaming generation. The event is published before
// the reply is written so accounting does not depend on the client reading
// the response.
func (e *Engine) chatOnce(ctx context.Context, req *provider.Request, w transport.ResponseWriter) error {
	msg, err := e.provider.Generate(ctx, req)
	if err != nil {
		return err
	}
	if msg == nil {
		return api.NewServerError("backend produced no output")
	}

	id := api.NewMessageID()
	resp := buildResponse(id, req.Model, msg)

	debug.Log("engine", "message created", "message_id", id, "model", req.Model, "stream", false)
	e.publishCreated(ctx, id, req.Model, msg.Usage)

	return w.WriteResponse(ctx, resp)
}

// chatStream forwards each delta as it arrives and ends the stream with a
// terminal chunk. On a provider error nothing further is written and no
// event is published; the error is returned for the transport to report.
func (e *Engine) chatStream(ctx context.Context, req *provider.Request, w transport.ResponseWriter) error {
	seq, err := e.provider.GenerateStream(ctx, req)
	if err != nil {
		return err
	}

	id := api.NewMessageID()
	var (
		usage      *api.Usage
		stopReason string
		deltas     int
	)

	for msg, err := range seq {
		if err != nil {
			debug.Log("engine", "stream failed", "message_id", id, "deltas", deltas, "error", err)
			return err
		}
		if msg.Content != "" {
			if err := w.WriteChunk(ctx, deltaChunk(id, req.Model, msg.Content)); err != nil {
				return err
			}
			deltas++
		}
		if msg.Usage != nil {
			usage, stopReason = msg.Usage, msg.StopReason
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := w.WriteChunk(ctx, finalChunk(id, req.Model, usage, stopReason)); err != nil {
		return err
	}

	debug.Log("engine", "message created", "message_id", id, "model", req.Model, "stream", true, "deltas", deltas)
	e.publishCreated(ctx, id, req.Model, usage)
	return nil
}
