package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/brief-builder/internal/model"
)

// contextKey is unexported so no other package can read or shadow the values
// this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

// ErrMissingToken is passed to the ErrorWriter when a protected route is hit
// without an "Authorization: Bearer" header.
var ErrMissingToken = errors.New("auth: missing bearer token")

// UserResolver turns a raw access token into the user it belongs to.
// service.AuthService implements it; errors are apperror values
// (Unauthorized for bad tokens, Forbidden for inactive users).
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// ErrorWriter renders an error response. The handler package passes its
// writeError so auth failures share the API's JSON error format.
type ErrorWriter func(w http.ResponseWriter, err error)

// RequireAuth enforces authentication on owner-only routes.
//
// It reads the token from the Authorization header, resolves the user and
// stores it in the request context. On failure the chain stops and the
// ErrorWriter renders the error (401 or 403).
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(users UserResolver, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeErr(w, ErrMissingToken)
				return
			}

			user, err := users.ResolveCurrentUser(r.Context(), token)
			if err != nil {
				writeErr(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Exported for handler tests.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) when the
// request did not pass through RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
