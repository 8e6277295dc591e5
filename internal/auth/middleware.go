package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token and puts the
// authenticated user's ID on the request context.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				// WebSocket clients cannot set headers from a browser, so
				// also accept the token as a query parameter.
				raw = r.URL.Query().Get("token")
			}

			if raw == "" {
				http.Error(w, "missing credentials", http.StatusUnauthorized)
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user from a request context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}
