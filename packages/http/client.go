package http

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Client issues requests with an immutable Config. A Client is safe for
// concurrent use; derive variants with With.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
}

func NewClient(opts ...ClientOption) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(cfg)
}

func newClient(cfg Config) *Client {
	if cfg.Headers == nil {
		cfg.Headers = &Headers{}
	}
	if cfg.Transport == nil {
		cfg.Transport = NewNetTransport()
	}
	if cfg.Boundaries == nil {
		cfg.Boundaries = UUIDBoundary{}
	}

	c := &Client{cfg: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}
	return c
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.cfg.clone()
}

// With returns a new client with opts applied on top of this one's config.
// The receiver is left untouched.
func (c *Client) With(opts ...ClientOption) *Client {
	cfg := c.cfg.clone()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(cfg)
}

// FetchOption describes one aspect of a Fetch call.
type FetchOption func(*Request)

func WithMethod(method string) FetchOption {
	return func(r *Request) {
		r.Method = method
	}
}

func WithBody(body Body) FetchOption {
	return func(r *Request) {
		r.Body = body
	}
}

func WithQuery(query map[string]any) FetchOption {
	return func(r *Request) {
		for k, v := range query {
			r.SetQueryParam(k, v)
		}
	}
}

func WithHeader(key, value string) FetchOption {
	return func(r *Request) {
		r.SetHeader(key, value)
	}
}

// WithChunkFunc streams the response body to fn instead of buffering it.
func WithChunkFunc(fn ChunkFunc) FetchOption {
	return func(r *Request) {
		r.OnChunk = fn
	}
}

// Fetch issues a request to url. Without options it is a GET with no body.
func (c *Client) Fetch(ctx context.Context, url string, opts ...FetchOption) (*Response, error) {
	req := NewRequest(string(MethodGet), url)
	for _, opt := range opts {
		opt(req)
	}
	return c.Do(ctx, req)
}

// Do validates, encodes and sends req, retrying on configured statuses.
// It blocks until the final response, including every streamed chunk.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	out, err := BuildOutbound(c.cfg, req)
	if err != nil {
		return nil, err
	}

	attempt := func(ctx context.Context, n int) (*Response, error) {
		return c.attempt(ctx, out, req.OnChunk, n)
	}

	if c.cfg.MaxRetries <= 0 {
		return attempt(ctx, 1)
	}

	policy := c.cfg.RetryPolicy()
	policy.OnRetry = func(n int, resp *Response) {
		c.cfg.Logger.Info().
			Str("method", out.Method.String()).
			Str("url", out.URL).
			Int("attempt", n).
			Int("status", resp.StatusCode).
			Dur("delay", c.cfg.RetryDelay).
			Msg("retrying request")
		if c.cfg.Observer != nil {
			c.cfg.Observer.ObserveRetry(out.Method.String(), n, resp.StatusCode)
		}
	}

	resp, err := policy.Execute(ctx, attempt)
	if err != nil {
		return nil, withURL(err, out.URL)
	}
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, out *OutboundRequest, onChunk ChunkFunc, n int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{URL: out.URL, Err: err}
		}
	}

	sink := NewChunkSink(onChunk)
	headers := NewHeaderParser()

	c.cfg.Logger.Debug().
		Str("method", out.Method.String()).
		Str("url", out.URL).
		Int("attempt", n).
		Bool("streaming", onChunk != nil).
		Msg("sending request")

	start := time.Now()
	status, err := c.cfg.Transport.RoundTrip(ctx, out, Hooks{
		OnHeaderLine: headers.OnHeaderLine,
		OnData: func(fragment []byte) {
			_, _ = sink.Write(fragment)
		},
	})
	duration := time.Since(start)

	if c.cfg.Observer != nil {
		c.cfg.Observer.ObserveAttempt(out.Method.String(), status, duration, err)
	}

	if err != nil {
		c.cfg.Logger.Warn().
			Err(err).
			Str("method", out.Method.String()).
			Str("url", out.URL).
			Int("attempt", n).
			Bool("timeout", IsTimeout(err)).
			Msg("transport failed")
		return nil, &TransportError{URL: out.URL, Err: err}
	}

	c.cfg.Logger.Debug().
		Str("method", out.Method.String()).
		Str("url", out.URL).
		Int("status", status).
		Int("chunks", sink.Count()).
		Dur("duration", duration).
		Msg("received response")

	return &Response{
		StatusCode: status,
		Headers:    headers.Finish(),
		Body:       sink.Body(),
		Duration:   duration,
		Attempts:   n,
	}, nil
}

func withURL(err error, url string) error {
	if te, ok := err.(*TransportError); ok && te.URL == "" {
		te.URL = url
	}
	return err
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, requestWithHeaders(MethodGet, url, nil, headers))
}

func (c *Client) Post(ctx context.Context, url string, body Body, headers map[string]string) (*Response, error) {
	return c.Do(ctx, requestWithHeaders(MethodPost, url, body, headers))
}

func (c *Client) Put(ctx context.Context, url string, body Body, headers map[string]string) (*Response, error) {
	return c.Do(ctx, requestWithHeaders(MethodPut, url, body, headers))
}

func (c *Client) Patch(ctx context.Context, url string, body Body, headers map[string]string) (*Response, error) {
	return c.Do(ctx, requestWithHeaders(MethodPatch, url, body, headers))
}

func (c *Client) Delete(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, requestWithHeaders(MethodDelete, url, nil, headers))
}

func requestWithHeaders(method Method, url string, body Body, headers map[string]string) *Request {
	req := NewRequest(method.String(), url).SetBody(body)
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	return req
}

// DefaultClient is used by the package-level Fetch.
var DefaultClient = NewClient()

// Fetch issues a request with DefaultClient.
func Fetch(ctx context.Context, url string, opts ...FetchOption) (*Response, error) {
	return DefaultClient.Fetch(ctx, url, opts...)
}
