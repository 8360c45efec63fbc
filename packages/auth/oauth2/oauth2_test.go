package oauth2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

func tokenServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestProviderClientCredentials(t *testing.T) {
	server, hits := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "read write", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	})

	p := NewProvider(&Config{
		TokenURL:     server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		Scopes:       []string{"read", "write"},
		GrantType:    ClientCredentials,
	})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)
	assert.False(t, token.IsExpired())
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestProviderPasswordGrant(t *testing.T) {
	server, _ := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "pw", r.PostForm.Get("password"))
		_, _ = w.Write([]byte(`{"access_token":"pw-token"}`))
	})

	p := NewProvider(&Config{TokenURL: server.URL, GrantType: Password, Username: "alice", Password: "pw"})
	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pw-token", token.AccessToken)
	assert.True(t, token.ExpiresAt.IsZero())
}

func TestProviderRefreshesExpiredToken(t *testing.T) {
	server, _ := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "r1", r.PostForm.Get("refresh_token"))
		_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":60}`))
	})

	cache := NewTokenCache()
	p := NewProvider(&Config{TokenURL: server.URL, ClientID: "c"}, WithCache(cache))
	cache.Store(p.cacheKey(), &Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Minute)})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)

	cached, fresh := cache.Lookup(p.cacheKey())
	assert.True(t, fresh)
	assert.Same(t, token, cached)
}

func TestProviderErrorResponse(t *testing.T) {
	server, _ := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"unknown client"}`))
	})

	_, err := NewProvider(&Config{TokenURL: server.URL}).Token(context.Background())

	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, 400, tokenErr.StatusCode)
	assert.Equal(t, "invalid_client", tokenErr.Code)
	assert.Equal(t, "token request failed: invalid_client - unknown client", tokenErr.Error())
}

func TestProviderMissingAccessToken(t *testing.T) {
	server, _ := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	})

	_, err := NewProvider(&Config{TokenURL: server.URL}).Token(context.Background())
	assert.Error(t, err)
}

func TestProviderSign(t *testing.T) {
	server, _ := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
	})

	p := NewProvider(&Config{TokenURL: server.URL}, WithClient(fetchhttp.NewClient()))
	req := &fetchhttp.OutboundRequest{URL: "http://api.test", Headers: &fetchhttp.Headers{}}
	require.NoError(t, p.Sign(context.Background(), req))
	assert.Equal(t, "Bearer abc", req.Headers.Get("Authorization"))
}

func TestTokenCache(t *testing.T) {
	cache := NewTokenCache()
	cache.Store("live", &Token{AccessToken: "a"})
	cache.Store("expired", &Token{AccessToken: "b", ExpiresAt: time.Now().Add(-time.Hour)})
	cache.Store("refreshable", &Token{AccessToken: "c", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour)})

	_, fresh := cache.Lookup("live")
	assert.True(t, fresh)
	token, fresh := cache.Lookup("expired")
	assert.NotNil(t, token)
	assert.False(t, fresh)
	token, fresh = cache.Lookup("missing")
	assert.Nil(t, token)
	assert.False(t, fresh)

	assert.Equal(t, 1, cache.Purge())
	assert.Equal(t, 2, cache.Len())

	cache.Forget("live")
	assert.Equal(t, 1, cache.Len())
}

func TestTokenIsExpiredLeeway(t *testing.T) {
	assert.True(t, (&Token{ExpiresAt: time.Now().Add(10 * time.Second)}).IsExpired())
	assert.False(t, (&Token{ExpiresAt: time.Now().Add(time.Minute)}).IsExpired())
	assert.False(t, (&Token{}).IsExpired())
}
