// Package oauth2 obtains OAuth2 access tokens and signs fetch requests with
// them.
package oauth2

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// GrantType represents the OAuth2 grant type
type GrantType string

const (
	// ClientCredentials is the client_credentials grant type
	ClientCredentials GrantType = "client_credentials"
	// Password is the password (resource owner) grant type
	Password GrantType = "password"
	// RefreshToken is the refresh_token grant type
	RefreshToken GrantType = "refresh_token"
)

// expiryLeeway treats tokens as expired slightly early to absorb clock skew.
const expiryLeeway = 30 * time.Second

// Config holds OAuth2 configuration
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Username     string // For password grant
	Password     string // For password grant
	GrantType    GrantType
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// IsExpired checks if the token is expired
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(expiryLeeway).After(t.ExpiresAt)
}

// TokenError is returned when the token endpoint rejects a request.
type TokenError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token request failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("token request failed with status %d", e.StatusCode)
}

// Provider handles OAuth2 token acquisition. It is safe for concurrent use.
type Provider struct {
	config *Config
	client *fetchhttp.Client
	cache  *TokenCache
	mu     sync.Mutex
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithClient sets the fetch client used to call the token endpoint.
func WithClient(client *fetchhttp.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// WithCache shares a token cache between providers.
func WithCache(cache *TokenCache) ProviderOption {
	return func(p *Provider) {
		p.cache = cache
	}
}

// NewProvider creates a new OAuth2 provider
func NewProvider(config *Config, opts ...ProviderOption) *Provider {
	p := &Provider{config: config}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = fetchhttp.NewClient(fetchhttp.WithTimeout(30 * time.Second))
	}
	if p.cache == nil {
		p.cache = NewTokenCache()
	}
	return p
}

// Token retrieves a valid access token, fetching a new one if necessary. An
// expired token with a refresh token is refreshed first.
func (p *Provider) Token(ctx context.Context) (*Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cacheKey := p.cacheKey()
	cached, fresh := p.cache.Lookup(cacheKey)
	if fresh {
		return cached, nil
	}

	var (
		token *Token
		err   error
	)
	if cached != nil && cached.RefreshToken != "" {
		token, err = p.Refresh(ctx, cached.RefreshToken)
	}
	if token == nil {
		token, err = p.fetchToken(ctx)
	}
	if err != nil {
		return nil, err
	}

	p.cache.Store(cacheKey, token)
	return token, nil
}

// Sign sets a Bearer Authorization header, which makes a Provider usable
// as an auth.Signer.
func (p *Provider) Sign(ctx context.Context, req *fetchhttp.OutboundRequest) error {
	token, err := p.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get OAuth2 token: %w", err)
	}
	tokenType := token.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	req.Headers.Set("Authorization", tokenType+" "+token.AccessToken)
	return nil
}

func (p *Provider) cacheKey() string {
	return fmt.Sprintf("%s:%s:%s", p.config.TokenURL, p.config.ClientID, strings.Join(p.config.Scopes, ","))
}

func (p *Provider) fetchToken(ctx context.Context) (*Token, error) {
	form := fetchhttp.Values{}
	switch p.config.GrantType {
	case Password:
		form["grant_type"] = string(Password)
		form["username"] = p.config.Username
		form["password"] = p.config.Password
	default:
		form["grant_type"] = string(ClientCredentials)
	}
	if len(p.config.Scopes) > 0 {
		form["scope"] = strings.Join(p.config.Scopes, " ")
	}
	return p.doTokenRequest(ctx, form)
}

// Refresh exchanges a refresh token for a new access token.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return p.doTokenRequest(ctx, fetchhttp.Values{
		"grant_type":    string(RefreshToken),
		"refresh_token": refreshToken,
	})
}

func (p *Provider) doTokenRequest(ctx context.Context, form fetchhttp.Values) (*Token, error) {
	req := fetchhttp.NewRequest(fetchhttp.MethodPost.String(), p.config.TokenURL).
		SetHeader("Content-Type", fetchhttp.MIMEFormURLEncoded).
		SetHeader("Accept", fetchhttp.MIMEJSON).
		SetBody(form)

	if p.config.ClientID != "" && p.config.ClientSecret != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
		req.SetHeader("Authorization", "Basic "+credentials)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	if resp.StatusCode != 200 {
		tokenErr := &TokenError{StatusCode: resp.StatusCode}
		if resp.Get("error").Exists() {
			tokenErr.Code = resp.Get("error").String()
			tokenErr.Description = resp.Get("error_description").String()
		}
		return nil, tokenErr
	}

	var token Token
	if err := resp.JSON(&token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}
