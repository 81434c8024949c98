package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/finagent/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// and records its duration by procedure and status code.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			elapsed := time.Since(start)
			attrs := []any{
				"procedure", procedure,
				"user_id", GetUserID(ctx), // empty if auth ran after this interceptor
				"duration_ms", elapsed.Milliseconds(),
			}

			code := "ok"
			var connectErr *connect.Error
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case errors.As(err, &connectErr):
				code = connectErr.Code().String()
				slog.Warn("RPC error", append(attrs, "code", code, "error", connectErr.Message())...)
			default:
				code = connect.CodeUnknown.String()
				slog.Error("RPC error", append(attrs, "error", err)...)
			}
			metrics.RPCDuration.WithLabelValues(procedure, code).Observe(elapsed.Seconds())

			return resp, err
		}
	}
}
