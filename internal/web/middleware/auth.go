package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/web/response"
)

// Authenticate resolves the Bearer token on each request into a
// principal and attaches it to the request context. Requests without
// an Authorization header pass through anonymous; resource descriptors
// decide whether an anonymous request is acceptable. A header that is
// present but invalid is rejected outright.
func Authenticate(tokens *auth.TokenService, source *auth.Source, log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				response.RenderUnauthorized(w, "invalid authorization header")
				return
			}

			userID, err := tokens.Validate(parts[1])
			if err != nil {
				response.RenderUnauthorized(w, "invalid or expired token")
				return
			}

			principal, err := source.Load(r.Context(), userID)
			if err != nil {
				if errors.Is(err, auth.ErrPrincipalNotFound) {
					response.RenderUnauthorized(w, "invalid or expired token")
					return
				}
				log.Error("principal lookup failed",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Int64("user_id", userID),
					zap.Error(err),
				)
				response.RenderInternalError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
