// internal/transport/http/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(claims.UserID))
	})
}

func TestAuth_BearerTokenRoundTrip(t *testing.T) {
	provider := NewJWTProvider("test-secret", "journal")
	token, err := provider.Sign("user-42", time.Minute)
	require.NoError(t, err)

	srv := Auth(provider)(protectedEcho(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestAuth_QueryParamFallback(t *testing.T) {
	provider := NewJWTProvider("test-secret", "journal")
	token, err := provider.Sign("user-42", time.Minute)
	require.NoError(t, err)

	srv := Auth(provider)(protectedEcho(t))
	req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejections(t *testing.T) {
	provider := NewJWTProvider("test-secret", "journal")

	expired, err := provider.Sign("user-42", -time.Minute)
	require.NoError(t, err)
	foreign, err := NewJWTProvider("other-secret", "journal").Sign("user-42", time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := NewJWTProvider("test-secret", "someone-else").Sign("user-42", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "malformed header", header: "Token abc"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + foreign},
		{name: "wrong issuer", header: "Bearer " + wrongIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := Auth(provider)(protectedEcho(t))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestInternalAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := InternalAuth("hub-token")(next)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Internal-Token", "hub-token")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Internal-Token", "wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// An unset token never matches, even against an empty header.
	srv = InternalAuth("")(next)
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
