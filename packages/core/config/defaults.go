package config

import (
	"slices"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:          int(fetchhttp.DefaultTimeout.Milliseconds()),
		ConnectTimeout:   int(fetchhttp.DefaultConnectTimeout.Milliseconds()),
		Retries:          0,
		RetryDelay:       int(fetchhttp.DefaultRetryDelay.Milliseconds()),
		RetryStatusCodes: append([]int(nil), fetchhttp.DefaultRetryStatusCodes...),
		FollowRedirects:  BoolPtr(true),
		MaxRedirects:     fetchhttp.DefaultMaxRedirects,
		ValidateSSL:      BoolPtr(true),
		UserAgent:        fetchhttp.DefaultUserAgent,
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.ConnectTimeout == defaults.ConnectTimeout &&
		c.Retries == defaults.Retries &&
		c.RetryDelay == defaults.RetryDelay &&
		slices.Equal(c.RetryStatusCodes, defaults.RetryStatusCodes) &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		c.UserAgent == defaults.UserAgent &&
		len(c.Headers) == 0 &&
		c.RateLimit == 0 &&
		c.LogLevel == ""
}
