package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/saurabh1e/pos-api/internal/web/response"
)

// Timeout aborts requests that run longer than d. The handler's
// context is cancelled, the client gets a 504, and any late writes
// from the abandoned handler are discarded.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &deadlineWriter{w: w}
			done := make(chan struct{})
			panicked := make(chan interface{}, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				tw.abandon()
				response.RenderError(w, http.StatusGatewayTimeout, errors.New("request timed out"))
			}
		})
	}
}

// deadlineWriter guards the underlying writer so a handler that
// outlives its deadline cannot race the timeout response.
type deadlineWriter struct {
	w         http.ResponseWriter
	mu        sync.Mutex
	abandoned bool
}

func (tw *deadlineWriter) Header() http.Header {
	return tw.w.Header()
}

func (tw *deadlineWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.abandoned {
		return
	}
	tw.w.WriteHeader(code)
}

func (tw *deadlineWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.abandoned {
		return 0, http.ErrHandlerTimeout
	}
	return tw.w.Write(b)
}

func (tw *deadlineWriter) abandon() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.abandoned = true
}
