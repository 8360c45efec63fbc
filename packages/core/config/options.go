package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Logger builds a zerolog logger writing to w at LogLevel. An empty level
// yields a disabled logger.
func (c *Config) Logger(w io.Writer) (zerolog.Logger, error) {
	if c.LogLevel == "" {
		return zerolog.Nop(), nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// ClientOptions converts the file config into client options. A custom
// NetTransport is installed only when SSL validation or the proxy differ
// from the defaults.
func (c *Config) ClientOptions() ([]fetchhttp.ClientOption, error) {
	opts := []fetchhttp.ClientOption{
		fetchhttp.WithFollowRedirects(c.GetFollowRedirects()),
		fetchhttp.WithMaxRedirects(c.MaxRedirects),
		fetchhttp.WithMaxRetries(c.Retries),
	}

	if c.Timeout > 0 {
		opts = append(opts, fetchhttp.WithTimeout(millis(c.Timeout)))
	}
	if c.ConnectTimeout > 0 {
		opts = append(opts, fetchhttp.WithConnectTimeout(millis(c.ConnectTimeout)))
	}
	if c.RetryDelay > 0 {
		opts = append(opts, fetchhttp.WithRetryDelay(millis(c.RetryDelay)))
	}
	if len(c.RetryStatusCodes) > 0 {
		opts = append(opts, fetchhttp.WithRetryStatusCodes(c.RetryStatusCodes...))
	}
	if c.UserAgent != "" {
		opts = append(opts, fetchhttp.WithUserAgent(c.UserAgent))
	}
	if len(c.Headers) > 0 {
		opts = append(opts, fetchhttp.WithDefaultHeaders(c.Headers))
	}
	if c.RateLimit > 0 {
		opts = append(opts, fetchhttp.WithRateLimit(c.RateLimit, c.RateBurst))
	}

	if !c.GetValidateSSL() || c.Proxy != "" {
		var transportOpts []fetchhttp.NetTransportOption
		if !c.GetValidateSSL() {
			transportOpts = append(transportOpts, fetchhttp.WithValidateSSL(false))
		}
		if c.Proxy != "" {
			if _, err := url.Parse(c.Proxy); err != nil {
				return nil, fmt.Errorf("invalid proxy URL: %w", err)
			}
			transportOpts = append(transportOpts, fetchhttp.WithProxy(c.Proxy))
		}
		opts = append(opts, fetchhttp.WithTransport(fetchhttp.NewNetTransport(transportOpts...)))
	}

	if c.LogLevel != "" {
		logger, err := c.Logger(os.Stderr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fetchhttp.WithLogger(logger))
	}

	return opts, nil
}

// NewClient builds a client from the file config. extra options are applied
// after the config's own.
func (c *Config) NewClient(extra ...fetchhttp.ClientOption) (*fetchhttp.Client, error) {
	opts, err := c.ClientOptions()
	if err != nil {
		return nil, err
	}
	return fetchhttp.NewClient(append(opts, extra...)...), nil
}
