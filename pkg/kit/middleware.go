package kit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Logging logs every call of the named endpoint. Calls arriving without a
// request id get a fresh one.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			id := GetRequestID(ctx)
			if id == "" {
				id = uuid.NewString()
				ctx = WithRequestID(ctx, id)
			}
			start := time.Now()
			resp, err := next(ctx, request)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", id,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint", attrs...)
			}
			return resp, err
		}
	}
}
