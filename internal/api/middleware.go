package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// userIDHeader carries the caller's identity, set by the upstream gateway.
const userIDHeader = "X-User-ID"

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the caller's user ID.
const userIDKey ctxKey = "userID"

// userMiddleware stores the X-User-ID header in the request context.
// Requests without it continue anonymously; handlers use GetUserID to
// require an identity.
func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := HeaderUserID(r); userID != "" {
			r = r.WithContext(setUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// HeaderUserID reads the caller identity header. It satisfies sse.UserResolver.
func HeaderUserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

// GetUserID returns the caller's user ID from context.
// Returns a 401 error if the request carried no identity.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("X-User-ID header is required")
	}
	return userID, nil
}

// optionalUserID returns the caller's user ID, or "" for anonymous requests.
func optionalUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// setUserID stores the user ID in context.
func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
