package middleware

import (
	"net/http"
	"strings"

	"github.com/blunari/blunari-backend/internal/auth/jwt"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/httputil"
)

// Authenticate validates the bearer token and places the caller's account
// identity on the request context. It establishes who the caller is, nothing
// more; whether they may provision is decided per request against the
// employee table.
func Authenticate(manager *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.Error(w, r, errors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				httputil.Error(w, r, err)
				return
			}

			ctx := httputil.WithAccountContext(r.Context(), claims.AccountID, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
