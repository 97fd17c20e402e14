package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(id.UserID + "|" + id.DisplayName))
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	h := auth.AuthMiddleware(echoIdentity())

	valid := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "name": "Ana", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	wrongKey := signToken(t, "other-secret", jwt.MapClaims{"sub": "u1"})
	noSub := signToken(t, testSecret, jwt.MapClaims{"name": "Ana"})

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{name: "bearer header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, status: http.StatusOK, body: "u1|Ana"},
		{name: "query token", setup: func(r *http.Request) { r.URL.RawQuery = "token=" + valid }, status: http.StatusOK, body: "u1|Ana"},
		{name: "missing", setup: func(r *http.Request) {}, status: http.StatusUnauthorized},
		{name: "expired", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, status: http.StatusUnauthorized},
		{name: "wrong key", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+wrongKey) }, status: http.StatusUnauthorized},
		{name: "no sub", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+noSub) }, status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	h := auth.OptionalAuth(echoIdentity())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	tok := signToken(t, testSecret, jwt.MapClaims{"sub": "u7", "user_metadata": map[string]interface{}{"full_name": "Budi"}})
	req = httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "u7|Budi", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDisplayNameFallsBackToSubject(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	id, err := auth.verify(signToken(t, testSecret, jwt.MapClaims{"sub": "u9"}))
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u9", DisplayName: "u9"}, id)
}
