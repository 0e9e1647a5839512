package middleware

import (
	"net/http"
	"strconv"

	"storage-marketplace/internal"
	"storage-marketplace/pkg/logger"
)

// Identity reads the caller identity the auth gateway forwarded in headers
// and places it in the request context. Authentication itself happens
// upstream; this service only consumes the result.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if raw := r.Header.Get("X-User-ID"); raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil {
				ctx = internal.ContextWithUserID(ctx, userID)
				ctx = logger.With(ctx, "userID", userID)
			}
		}
		if role := r.Header.Get("X-User-Role"); role != "" {
			ctx = internal.ContextWithRole(ctx, role)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose forwarded role does not match.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internal.RoleFromContext(r.Context()) != role {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
