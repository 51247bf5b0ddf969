package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/web/response"
)

// Recovery recovers from panics in downstream handlers, logs the panic
// with a stack trace and returns a generic 500 response
func Recovery(log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Error(panicToError(rec)),
						zap.ByteString("stack", debug.Stack()),
					)
					response.RenderInternalError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicToError(rec interface{}) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("%v", rec)
}
