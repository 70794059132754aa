// Package middleware holds the narrow auth context-key adapter the HTTP
// handlers depend on, grounded on the teacher's
// infra/server/grpc/interceptors/stream_auth.go contextKey pattern, adapted
// from a gRPC stream interceptor to a net/http middleware.
package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const userIDContextKey contextKey = "current_user_id"

// CurrentUser resolves the caller's identity for a request. Production
// deployments supply one backed by the session/JWT layer in front of this
// service; RequireUser never does that resolution itself.
type CurrentUser func(r *http.Request) (int64, bool)

// RequireUser wraps next with a check that resolve has identified the
// caller, injecting the resulting user id into the request context under
// userIDContextKey. A resolve failure is a 401, never a silent anonymous
// pass-through (spec §6's endpoints are all scoped to current_user.id).
func RequireUser(resolve CurrentUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolve(r)
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user id injected by RequireUser.
func UserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

// HeaderUser is a placeholder CurrentUser resolver reading an
// X-User-Id header. It exists so the service boots and is exercisable
// end-to-end without a real session store wired in; a production
// deployment replaces it with one backed by the gateway's session/JWT
// validation.
func HeaderUser(header string) CurrentUser {
	return func(r *http.Request) (int64, bool) {
		v := r.Header.Get(header)
		if v == "" {
			return 0, false
		}
		var id int64
		for _, c := range v {
			if c < '0' || c > '9' {
				return 0, false
			}
			id = id*10 + int64(c-'0')
		}
		return id, true
	}
}
