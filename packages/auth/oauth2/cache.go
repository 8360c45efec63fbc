package oauth2

import "sync"

// TokenCache holds tokens keyed by endpoint, client and scopes. Providers
// built with WithCache share it.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]*Token)}
}

// Lookup returns the cached token for key and whether it is still usable.
// An expired token is returned with fresh=false so its refresh token can be
// used.
func (c *TokenCache) Lookup(key string) (token *Token, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token = c.tokens[key]
	return token, token != nil && !token.IsExpired()
}

func (c *TokenCache) Store(key string, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
}

func (c *TokenCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}

// Purge drops expired tokens that cannot be refreshed and returns how many
// were removed.
func (c *TokenCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, token := range c.tokens {
		if token.IsExpired() && token.RefreshToken == "" {
			delete(c.tokens, key)
			removed++
		}
	}
	return removed
}

func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}
