package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-0123456789"

func TestTokenManager_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager(secret, time.Hour).WithClock(func() time.Time { return now })

	tok, err := tm.Issue(core.User{ID: "u-1", Role: core.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)

	id, err := tm.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Role: core.RoleAdmin}, id)
	assert.True(t, id.IsAdmin())
}

func TestTokenManager_Rejects(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager(secret, time.Hour).WithClock(func() time.Time { return now })
	tok, err := tm.Issue(core.User{ID: "u-1", Role: core.RoleUser})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager(secret, time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Parse(tok.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-9876543210", time.Hour).WithClock(func() time.Time { return now })
		_, err := other.Parse(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)
	userTok, err := tm.Issue(core.User{ID: "u-1", Role: core.RoleUser})
	require.NoError(t, err)
	adminTok, err := tm.Issue(core.User{ID: "a-1", Role: core.RoleAdmin})
	require.NoError(t, err)

	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case errors.Is(err, core.ErrForbidden):
			w.WriteHeader(http.StatusForbidden)
		case errors.Is(err, core.ErrUnauthorized):
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}

	var seen Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	authed := Middleware(tm, onError)(inner)
	admin := Middleware(tm, onError)(RequireRole(core.RoleAdmin, onError)(inner))

	tests := []struct {
		name    string
		handler http.Handler
		header  string
		want    int
	}{
		{"missing header", authed, "", http.StatusUnauthorized},
		{"wrong scheme", authed, "Basic abc", http.StatusUnauthorized},
		{"bad token", authed, "Bearer nope", http.StatusUnauthorized},
		{"user token", authed, "Bearer " + userTok.AccessToken, http.StatusOK},
		{"user on admin route", admin, "Bearer " + userTok.AccessToken, http.StatusForbidden},
		{"admin on admin route", admin, "bearer " + adminTok.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "a-1", seen.UserID)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	active := &core.User{FirstName: "Ada", Email: "Ada@Example.com", PasswordHash: hash, Active: true, Role: core.RoleUser}
	require.NoError(t, store.CreateUser(ctx, active))
	inactive := &core.User{FirstName: "Bo", Email: "bo@example.com", PasswordHash: hash, Active: false, Role: core.RoleUser}
	require.NoError(t, store.CreateUser(ctx, inactive))

	tm := NewTokenManager(secret, time.Hour)
	svc := NewService(store, tm, nil)

	tok, u, err := svc.Login(ctx, " ada@example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, active.ID, u.ID)
	id, err := tm.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, active.ID, id.UserID)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "bo@example.com", "correct horse")
	assert.ErrorIs(t, err, core.ErrInactiveUser)
}
