package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/storage"
)

// Logging returns middleware that emits one structured log entry per chat
// request with the request ID, tenant, model, stream flag, and duration.
// HTTP status codes are not visible at this level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			start := time.Now()

			err := next.Chat(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("tenant", storage.GetTenant(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Int("messages", len(req.Messages)),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				apiErr := AsAPIError(err)
				attrs = append(attrs,
					slog.String("error_type", string(apiErr.Type)),
					slog.String("error", apiErr.Message),
				)
				level := slog.LevelError
				if HTTPStatusFromError(apiErr) < 500 {
					level = slog.LevelWarn
				}
				logger.LogAttrs(ctx, level, "request failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}

			return err
		})
	}
}
