package minimax

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"sync/atomic"
	"time"

	"github.com/rhuss/mmbridge/pkg/api"
)

// maxLineSize bounds a single stream line.
const maxLineSize = 1 << 20

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// streamMessages wraps an open MiniMax stream body in a single-pass
// sequence. Each pull reads the next line and yields zero or more messages.
//
// Stream format expected (one JSON document per line, "data: " optional):
//
//	data: {"choices":[{"delta":"He"}]}
//	data: {"choices":[{"delta":"llo"}]}
//	data: {"reply":"Hello","usage":{"total_tokens":2},"choices":[{"finish_reason":"stop"}]}
//
// The line with a non-empty reply is terminal: one empty-content message
// carrying usage is yielded and the body is closed without reading further.
// A non-zero base_resp.status_code or an unparseable line yields an error
// and ends the sequence.
//
// The body is closed when the sequence finishes, when the consumer stops
// early, or when ctx is done. Ranging a second time yields a single error.
//
// A positive idle bounds the wait for each read from the body. When no
// data arrives within idle the body is closed and the sequence ends with a
// server error.
func streamMessages(ctx context.Context, body io.ReadCloser, model string, start time.Time, idle time.Duration) iter.Seq2[*api.ChatMessage, error] {
	var consumed atomic.Bool
	stop := context.AfterFunc(ctx, func() { body.Close() })

	return func(yield func(*api.ChatMessage, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(nil, api.NewServerError("minimax stream already consumed"))
			return
		}
		defer stop()
		defer body.Close()

		var (
			src      io.Reader = body
			timedOut atomic.Bool
		)
		if idle > 0 {
			timer := time.AfterFunc(idle, func() {
				timedOut.Store(true)
				body.Close()
			})
			defer timer.Stop()
			src = &idleReader{r: body, timer: timer, idle: idle}
		}

		var (
			final   *api.ChatMessage
			failure error
		)
		for msg, err := range decodeStream(src) {
			if err != nil {
				switch {
				case ctx.Err() != nil:
					err = api.NewServerError("minimax stream cancelled: " + ctx.Err().Error())
				case timedOut.Load():
					err = api.NewServerError(fmt.Sprintf("minimax stream idle for more than %s", idle))
				}
				failure = err
				yield(nil, err)
				break
			}
			if msg.Usage != nil {
				final = msg
			}
			if !yield(msg, nil) {
				break
			}
		}

		recordRequest(model, start, failure)
		if final != nil {
			recordUsage(model, final.Usage)
		}
	}
}

// decodeStream turns a MiniMax stream body into messages, applying the
// per-line rules in order: skip blank lines, strip the optional data
// prefix, fail on a vendor status code, finish on a non-empty reply, else
// yield one delta per choice.
func decodeStream(r io.Reader) iter.Seq2[*api.ChatMessage, error] {
	return func(yield func(*api.ChatMessage, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			if bytes.HasPrefix(line, dataPrefix) {
				line = bytes.TrimSpace(line[len(dataPrefix):])
			}
			if bytes.Equal(line, doneSentinel) {
				return
			}

			chunk, apiErr := decodePayload(line)
			if apiErr != nil {
				yield(nil, apiErr)
				return
			}

			if chunk.Reply != "" {
				yield(finalMessage(chunk, ""), nil)
				return
			}

			for _, choice := range chunk.Choices {
				if !yield(&api.ChatMessage{Role: api.RoleAssistant, Content: choice.Delta}, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, api.NewServerError("minimax stream read error: "+err.Error()))
		}
	}
}

// idleReader pushes the idle deadline back whenever a read returns data.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}
