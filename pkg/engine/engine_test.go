package engine

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/events"
	"github.com/rhuss/mmbridge/pkg/provider"
	"github.com/rhuss/mmbridge/pkg/quota"
	"github.com/rhuss/mmbridge/pkg/storage"
)

// fakeProvider returns canned results and records the last request.
type fakeProvider struct {
	msg       *api.ChatMessage
	err       error
	stream    []*api.ChatMessage
	streamErr error // yielded after stream
	openErr   error

	got *provider.Request
}

func (p *fakeProvider) Name() string { return "minimax" }

func (p *fakeProvider) Generate(_ context.Context, req *provider.Request) (*api.ChatMessage, error) {
	p.got = req
	return p.msg, p.err
}

func (p *fakeProvider) GenerateStream(_ context.Context, req *provider.Request) (iter.Seq2[*api.ChatMessage, error], error) {
	p.got = req
	if p.openErr != nil {
		return nil, p.openErr
	}
	return func(yield func(*api.ChatMessage, error) bool) {
		for _, m := range p.stream {
			if !yield(m, nil) {
				return
			}
		}
		if p.streamErr != nil {
			yield(nil, p.streamErr)
		}
	}, nil
}

func (p *fakeProvider) Close() error { return nil }

// recordingWriter captures what the engine writes.
type recordingWriter struct {
	chunks   []*api.StreamChunk
	response *api.ChatResponse
}

func (w *recordingWriter) WriteChunk(_ context.Context, c *api.StreamChunk) error {
	w.chunks = append(w.chunks, c)
	return nil
}

func (w *recordingWriter) WriteResponse(_ context.Context, r *api.ChatResponse) error {
	w.response = r
	return nil
}

func (w *recordingWriter) Flush() error { return nil }

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []events.MessageCreated
	ctxErr error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.MessageCreated) {
	p.ctxErr = ctx.Err()
	p.events = append(p.events, evt)
}

func userRequest(stream bool) *api.ChatRequest {
	return &api.ChatRequest{
		Model:    "abab5.5-chat",
		Messages: []api.ChatMessage{{Role: api.RoleUser, Content: "hi"}},
		Stream:   stream,
	}
}

func newEngine(t *testing.T, p provider.Provider, pub Publisher, lookup quota.ConfigLookup, cfg Config) *Engine {
	t.Helper()
	e, err := New(p, pub, lookup, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestNew_NilProvider(t *testing.T) {
	if _, err := New(nil, nil, nil, Config{}); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestChat_NonStreaming(t *testing.T) {
	p := &fakeProvider{msg: &api.ChatMessage{
		Role:       api.RoleAssistant,
		Content:    "Hello",
		Usage:      &api.Usage{CompletionTokens: 5, TotalTokens: 5},
		StopReason: "stop",
	}}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, nil, Config{})
	w := &recordingWriter{}

	if err := e.Chat(context.Background(), userRequest(false), w); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	resp := w.response
	if resp == nil {
		t.Fatal("expected a response")
	}
	if !api.ValidateMessageID(resp.ID) {
		t.Errorf("expected a message ID, got %q", resp.ID)
	}
	if resp.Object != api.ObjectChatMessage || resp.Model != "abab5.5-chat" {
		t.Errorf("unexpected object/model %q/%q", resp.Object, resp.Model)
	}
	if resp.Message.Content != "Hello" || resp.Message.ID != resp.ID {
		t.Errorf("unexpected message %+v", resp.Message)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 5 || resp.StopReason != "stop" {
		t.Errorf("unexpected usage/stop %+v %q", resp.Usage, resp.StopReason)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Message.ID != resp.ID || evt.Message.MessageTokens != 5 || evt.Message.PromptTokens != 0 {
		t.Errorf("unexpected event message %+v", evt.Message)
	}
	if evt.Generation.Model.Provider != "minimax" || evt.Generation.Model.Model != "abab5.5-chat" {
		t.Errorf("unexpected generation model %+v", evt.Generation.Model)
	}
}

func TestChat_DefaultModel(t *testing.T) {
	p := &fakeProvider{msg: &api.ChatMessage{Content: "ok"}}
	e := newEngine(t, p, nil, nil, Config{DefaultModel: "abab6-chat"})

	req := userRequest(false)
	req.Model = ""
	w := &recordingWriter{}
	if err := e.Chat(context.Background(), req, w); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if p.got.Model != "abab6-chat" {
		t.Errorf("expected default model, got %q", p.got.Model)
	}
	if w.response.StopReason != "stop" || w.response.Message.Role != api.RoleAssistant {
		t.Errorf("expected defaults for stop reason and role, got %+v", w.response)
	}
}

func TestChat_ModelRequired(t *testing.T) {
	e := newEngine(t, &fakeProvider{}, nil, nil, Config{})
	req := userRequest(false)
	req.Model = ""

	err := e.Chat(context.Background(), req, &recordingWriter{})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Param != "model" {
		t.Errorf("expected invalid request on model, got %v", err)
	}
}

func TestChat_ValidationRejectsBeforeProvider(t *testing.T) {
	p := &fakeProvider{msg: &api.ChatMessage{Content: "x"}}
	e := newEngine(t, p, nil, nil, Config{})
	req := userRequest(false)
	req.Messages = append(req.Messages, api.ChatMessage{Role: "tool", Content: "x"})

	if err := e.Chat(context.Background(), req, &recordingWriter{}); err == nil {
		t.Fatal("expected validation error")
	}
	if p.got != nil {
		t.Error("provider should not be called for an invalid request")
	}
}

func TestChat_ProviderErrorPublishesNothing(t *testing.T) {
	p := &fakeProvider{err: api.NewInsufficientAccountBalanceError("balance")}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, nil, Config{})
	w := &recordingWriter{}

	err := e.Chat(context.Background(), userRequest(false), w)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeInsufficientAccountBalance {
		t.Errorf("expected provider error to pass through, got %v", err)
	}
	if len(pub.events) != 0 || w.response != nil {
		t.Error("expected no event and no response on failure")
	}
}

func TestChat_Streaming(t *testing.T) {
	p := &fakeProvider{stream: []*api.ChatMessage{
		{Role: api.RoleAssistant, Content: "He"},
		{Role: api.RoleAssistant, Content: "llo"},
		{Role: api.RoleAssistant, Usage: &api.Usage{CompletionTokens: 2, TotalTokens: 2}, StopReason: "stop"},
	}}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, nil, Config{})
	w := &recordingWriter{}

	if err := e.Chat(context.Background(), userRequest(true), w); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if len(w.chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(w.chunks))
	}
	if w.chunks[0].Delta != "He" || w.chunks[1].Delta != "llo" {
		t.Errorf("unexpected deltas %q %q", w.chunks[0].Delta, w.chunks[1].Delta)
	}
	last := w.chunks[2]
	if last.Usage == nil || last.Usage.TotalTokens != 2 || last.StopReason != "stop" || last.Delta != "" {
		t.Errorf("unexpected terminal chunk %+v", last)
	}
	for _, c := range w.chunks {
		if c.ID != w.chunks[0].ID || c.Object != api.ObjectChatMessageChunk {
			t.Errorf("chunks must share one ID and object, got %+v", c)
		}
	}
	if !p.got.Stream {
		t.Error("expected the provider request to be marked as streaming")
	}

	if len(pub.events) != 1 || pub.events[0].Message.ID != last.ID || pub.events[0].Message.MessageTokens != 2 {
		t.Errorf("expected one event for the streamed message, got %+v", pub.events)
	}
}

func TestChat_StreamingErrorMidway(t *testing.T) {
	p := &fakeProvider{
		stream:    []*api.ChatMessage{{Content: "He"}},
		streamErr: api.NewRateLimitReachedError("slow down"),
	}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, nil, Config{})
	w := &recordingWriter{}

	err := e.Chat(context.Background(), userRequest(true), w)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeRateLimitReached {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if len(w.chunks) != 1 {
		t.Errorf("expected only the chunk before the failure, got %d", len(w.chunks))
	}
	if len(pub.events) != 0 {
		t.Error("expected no event for a failed stream")
	}
}

func TestChat_StreamingOpenError(t *testing.T) {
	p := &fakeProvider{openErr: api.NewInvalidAPIKeyError("bad key")}
	e := newEngine(t, p, nil, nil, Config{})

	err := e.Chat(context.Background(), userRequest(true), &recordingWriter{})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeInvalidAPIKey {
		t.Errorf("expected invalid api key error, got %v", err)
	}
}

func TestChat_StreamingWithoutUsage(t *testing.T) {
	p := &fakeProvider{stream: []*api.ChatMessage{{Content: "only"}}}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, nil, Config{})
	w := &recordingWriter{}

	if err := e.Chat(context.Background(), userRequest(true), w); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	last := w.chunks[len(w.chunks)-1]
	if last.StopReason != "stop" || last.Usage != nil {
		t.Errorf("expected a terminal chunk without usage, got %+v", last)
	}
	if len(pub.events) != 1 || pub.events[0].Message.MessageTokens != 0 {
		t.Errorf("expected an event with zero tokens, got %+v", pub.events)
	}
}

func TestChat_StreamingCancelled(t *testing.T) {
	p := &fakeProvider{stream: []*api.ChatMessage{{Content: "He"}}}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Chat(ctx, userRequest(true), &recordingWriter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Error("expected no event for a cancelled stream")
	}
}

func TestChat_PublishesTenantConfiguration(t *testing.T) {
	lookup := quota.NewStaticConfigLookup()
	lookup.Set("acme", "minimax", quota.ProviderConfiguration{UsingProviderType: quota.ProviderTypeSystem})

	p := &fakeProvider{msg: &api.ChatMessage{Content: "ok", Usage: &api.Usage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10}}}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, lookup, Config{})

	// A request context that is already done must not reach the handlers.
	ctx, cancel := context.WithCancel(storage.SetTenant(context.Background(), "acme"))
	cancel()

	if err := e.Chat(ctx, userRequest(false), &recordingWriter{}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	gen := pub.events[0].Generation
	if gen.TenantID != "acme" {
		t.Errorf("expected tenant acme, got %q", gen.TenantID)
	}
	if gen.Model.Configuration.UsingProviderType != quota.ProviderTypeSystem {
		t.Errorf("expected system provider configuration, got %+v", gen.Model.Configuration)
	}
	if pub.events[0].Message.PromptTokens != 4 || pub.events[0].Message.MessageTokens != 6 {
		t.Errorf("unexpected token counts %+v", pub.events[0].Message)
	}
	if pub.ctxErr != nil {
		t.Errorf("publish context should be live, got %v", pub.ctxErr)
	}
}

func TestChat_UnknownTenantGetsZeroConfiguration(t *testing.T) {
	lookup := quota.NewStaticConfigLookup()
	lookup.Set("acme", "minimax", quota.ProviderConfiguration{UsingProviderType: quota.ProviderTypeSystem})

	p := &fakeProvider{msg: &api.ChatMessage{Content: "ok"}}
	pub := &recordingPublisher{}
	e := newEngine(t, p, pub, lookup, Config{})

	ctx := storage.SetTenant(context.Background(), "other")
	if err := e.Chat(ctx, userRequest(false), &recordingWriter{}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got := pub.events[0].Generation.Model.Configuration.UsingProviderType; got != "" {
		t.Errorf("expected zero configuration, got %q", got)
	}
}

func TestChat_QuotaEndToEnd(t *testing.T) {
	lookup := quota.NewStaticConfigLookup()
	lookup.Set("", "minimax", quota.ProviderConfiguration{
		UsingProviderType: quota.ProviderTypeSystem,
		SystemConfiguration: quota.SystemConfiguration{
			CurrentQuotaType: quota.QuotaTypeTrial,
			QuotaConfigurations: []quota.QuotaConfiguration{
				{QuotaType: quota.QuotaTypeTrial, QuotaUnit: quota.QuotaUnitTokens, QuotaLimit: 100},
			},
		},
	})

	var deducted int
	d := events.NewDispatcher(nil)
	d.Subscribe("quota", events.HandlerFunc(func(_ context.Context, msg *quota.Message, gen *quota.GenerationContext) error {
		if gen.Model.Configuration.UsingProviderType == quota.ProviderTypeSystem {
			deducted += msg.MessageTokens + msg.PromptTokens
		}
		return nil
	}))

	p := &fakeProvider{msg: &api.ChatMessage{Content: "ok", Usage: &api.Usage{PromptTokens: 3, CompletionTokens: 7, TotalTokens: 10}}}
	e := newEngine(t, p, d, lookup, Config{})

	if err := e.Chat(storage.SetTenant(context.Background(), "t1"), userRequest(false), &recordingWriter{}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if deducted != 10 {
		t.Errorf("expected 10 tokens accounted, got %d", deducted)
	}
}
