package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/mmbridge/pkg/api"
)

// Recovery returns middleware that converts a handler panic into a server
// error. The server keeps accepting requests after a recovered panic.
func Recovery() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Chat(ctx, req, w)
		})
	}
}
