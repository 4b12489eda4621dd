package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestJWTProvider_ResolvesValidToken(t *testing.T) {
	token, err := GenerateJWT("user-1", "ada@example.com", []byte(testSecret), time.Hour)
	require.NoError(t, err)

	id, err := NewJWTProvider(testSecret).Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "ada@example.com", id.Email)
}

func TestJWTProvider_RejectsBadTokens(t *testing.T) {
	p := NewJWTProvider(testSecret)

	_, err := p.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)

	wrong, err := GenerateJWT("user-1", "", []byte("another-secret"), time.Hour)
	require.NoError(t, err)
	_, err = p.Resolve(context.Background(), wrong)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateJWT("user-1", "", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	_, err = p.Resolve(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRemoteProvider_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u-42","email":"x@example.com","user_metadata":{"full_name":"X Y"}}`))
	}))
	defer srv.Close()

	p := NewRemoteProvider(srv.URL+"/", "anon", time.Second)

	id, err := p.Resolve(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "u-42", Email: "x@example.com", Name: "X Y"}, id)

	_, err = p.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	for _, h := range []string{"", "abc", "Basic abc", "Bearer a b"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}
