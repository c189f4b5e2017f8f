package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/core/http"
	"github.com/searchktools/fast-backend/logger"
)

// Recovery turns a handler panic into an internal error so the connection
// stays usable and outer middleware still runs.
func Recovery(log logger.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(ctx *http.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered",
						logger.String("method", ctx.Method()),
						logger.String("path", ctx.Path()),
						logger.Any("panic", r),
						logger.String("stack", string(debug.Stack())),
					)
					err = apperror.Wrap(fmt.Errorf("panic: %v", r), apperror.CodeInternal, apperror.ErrInternal.Message)
				}
			}()
			return next(ctx)
		}
	}
}
