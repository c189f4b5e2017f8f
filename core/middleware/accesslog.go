package middleware

import (
	"time"

	"github.com/google/uuid"

	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/core/http"
	"github.com/searchktools/fast-backend/logger"
)

// RequestIDHeader is the incoming header whose value, when present, tags the
// request's log lines.
const RequestIDHeader = "X-Request-Id"

// Observer receives one sample per completed request.
type Observer interface {
	Observe(method, path string, status int, elapsed time.Duration)
}

// AccessLog logs each request on arrival and on completion and reports it to
// obs. obs may be nil. The request and response pass through untouched; the
// request ID only appears in the log fields.
func AccessLog(log logger.Logger, obs Observer) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(ctx *http.Context) error {
			start := time.Now()

			id := ctx.Header(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			reqLog := log.With(
				logger.String("request_id", id),
				logger.String("method", ctx.Method()),
				logger.String("path", ctx.Path()),
			)
			reqLog.Info("request started", logger.Int("bytes", len(ctx.Body())))

			err := next(ctx)

			status := ctx.StatusCode()
			if err != nil {
				status = apperror.HTTPStatus(err)
			}
			elapsed := time.Since(start)

			switch {
			case err == nil:
				reqLog.Info("request completed",
					logger.Int("status", status),
					logger.Duration("duration", elapsed),
				)
			case status >= 500:
				reqLog.Error("request failed",
					logger.Int("status", status),
					logger.Duration("duration", elapsed),
					logger.Err(err),
				)
			default:
				reqLog.Warn("request rejected",
					logger.Int("status", status),
					logger.Duration("duration", elapsed),
					logger.Err(err),
				)
			}

			if obs != nil {
				obs.Observe(ctx.Method(), ctx.Path(), status, elapsed)
			}
			return err
		}
	}
}
