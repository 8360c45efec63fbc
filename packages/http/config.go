package http

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default total request timeout
	DefaultTimeout = 15 * time.Second
	// DefaultConnectTimeout is the default time allowed to establish a connection
	DefaultConnectTimeout = 10 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1000 * time.Millisecond
	// DefaultUserAgent is sent when no User-Agent header is configured
	DefaultUserAgent = "fetch/1.0"
)

// Observer is notified about every attempt and retry. Implementations must
// be safe for concurrent use.
type Observer interface {
	ObserveAttempt(method string, status int, duration time.Duration, err error)
	ObserveRetry(method string, attempt int, status int)
}

// Config is the immutable configuration of a Client. It is copied into the
// client at construction and never shared.
type Config struct {
	Headers          *Headers
	Timeout          time.Duration
	ConnectTimeout   time.Duration
	FollowRedirects  bool
	MaxRedirects     int
	UserAgent        string
	MaxRetries       int
	RetryDelay       time.Duration
	RetryStatusCodes []int
	// RateLimit throttles attempts; zero disables throttling.
	RateLimit rate.Limit
	RateBurst int
	Logger    zerolog.Logger
	Observer  Observer
	Transport Transport
	// Boundaries generates boundaries for multipart bodies built from Values.
	Boundaries BoundaryGenerator
	// Sleep replaces the delay between retries; used by tests.
	Sleep SleepFunc
}

func DefaultConfig() Config {
	return Config{
		Headers:          &Headers{},
		Timeout:          DefaultTimeout,
		ConnectTimeout:   DefaultConnectTimeout,
		FollowRedirects:  true,
		MaxRedirects:     DefaultMaxRedirects,
		UserAgent:        DefaultUserAgent,
		RetryDelay:       DefaultRetryDelay,
		RetryStatusCodes: append([]int(nil), DefaultRetryStatusCodes...),
		Logger:           zerolog.Nop(),
		Boundaries:       UUIDBoundary{},
	}
}

func (c Config) clone() Config {
	c.Headers = c.Headers.Clone()
	c.RetryStatusCodes = append([]int(nil), c.RetryStatusCodes...)
	return c
}

// RetryPolicy derives the retry policy described by the configuration.
func (c Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  c.MaxRetries,
		Delay:       c.RetryDelay,
		StatusCodes: c.RetryStatusCodes,
		Sleep:       c.Sleep,
	}
}

type ClientOption func(*Config)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Config) {
		c.FollowRedirects = follow
	}
}

// WithMaxRedirects caps redirects; exceeding the cap is a transport error.
// A negative value removes the cap.
func WithMaxRedirects(max int) ClientOption {
	return func(c *Config) {
		c.MaxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Config) {
		c.Headers.Set(key, value)
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Config) {
		for k, v := range headers {
			c.Headers.Set(k, v)
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithMaxRetries sets the total attempt budget for retryable statuses.
func WithMaxRetries(n int) ClientOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithRetryStatusCodes replaces the set of statuses that trigger a retry.
func WithRetryStatusCodes(codes ...int) ClientOption {
	return func(c *Config) {
		c.RetryStatusCodes = append([]int{}, codes...)
	}
}

// WithRateLimit allows at most rps attempts per second with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Config) {
		c.RateLimit = rate.Limit(rps)
		c.RateBurst = burst
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func WithObserver(o Observer) ClientOption {
	return func(c *Config) {
		c.Observer = o
	}
}

func WithTransport(t Transport) ClientOption {
	return func(c *Config) {
		c.Transport = t
	}
}

func WithBoundaryGenerator(g BoundaryGenerator) ClientOption {
	return func(c *Config) {
		c.Boundaries = g
	}
}

func WithSleep(fn SleepFunc) ClientOption {
	return func(c *Config) {
		c.Sleep = fn
	}
}
