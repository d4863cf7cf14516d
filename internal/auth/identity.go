package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bilancio/internal/core"
)

// Identity is everything the services know about the caller.
type Identity struct {
	UserID string
	Role   core.Role
}

func (i Identity) IsAdmin() bool { return i.Role == core.RoleAdmin }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ErrorWriter renders an auth failure; err wraps core.ErrUnauthorized or core.ErrForbidden.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware requires a valid "Authorization: Bearer" token and stores its identity.
func Middleware(tokens *TokenManager, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				onError(w, r, core.ErrUnauthorized)
				return
			}
			id, err := tokens.Parse(raw)
			if err != nil {
				onError(w, r, errors.Join(core.ErrUnauthorized, err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets through only callers with role. It must run after Middleware.
func RequireRole(role core.Role, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				onError(w, r, core.ErrUnauthorized)
				return
			}
			if id.Role != role {
				onError(w, r, core.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
