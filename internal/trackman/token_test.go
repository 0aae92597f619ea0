package trackman

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenExchange(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "id-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-1", r.PostForm.Get("client_secret"))
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"tok-abc","expires_in":3600}`)
	}))
	defer server.Close()

	src := NewTokenSource(server.URL, "id-1", "secret-1", nil)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)

	// Cached until near expiry: no second exchange.
	tok, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)
	assert.Equal(t, int64(1), calls.Load())
}

func TestTokenRefreshWhenStale(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		// expires_in of one second is already inside the refresh margin,
		// so every call must re-exchange.
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":1}`, n)
	}))
	defer server.Close()

	src := NewTokenSource(server.URL, "id-1", "secret-1", nil)

	first, err := src.Token(context.Background())
	require.NoError(t, err)
	second, err := src.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-1", first)
	assert.Equal(t, "tok-2", second)
	assert.Equal(t, int64(2), calls.Load())
}

func TestTokenExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer server.Close()

	src := NewTokenSource(server.URL, "id-1", "bad-secret", nil)

	_, err := src.Token(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Body, "invalid_client")
}

func TestTokenMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token_type":"Bearer"}`)
	}))
	defer server.Close()

	src := NewTokenSource(server.URL, "id-1", "secret-1", nil)

	_, err := src.Token(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}
