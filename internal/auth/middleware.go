package auth

import (
	"context"
	"net/http"
)

type contextKey struct{}

// FromContext returns the identity attached by Middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity attaches an identity to a context. Exposed for tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware verifies the token cookie and injects the identity into the
// request context. Requests without a cookie get 401; requests with an
// invalid or expired token get 403, mirroring the split the API has
// always had.
func (m *Manager) Middleware(onError func(w http.ResponseWriter, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				onError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			id, err := m.Verify(cookie.Value)
			if err != nil {
				onError(w, http.StatusForbidden, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
