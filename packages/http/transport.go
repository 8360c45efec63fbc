package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	neturl "net/url"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultReadBufferSize bounds the size of a single body fragment
	DefaultReadBufferSize = 32 * 1024
)

// Hooks are invoked by a Transport while a response arrives.
type Hooks struct {
	// OnHeaderLine receives each response header as a raw "Name: value" line.
	OnHeaderLine func(line string)
	// OnData receives body fragments in arrival order. The slice is only
	// valid for the duration of the call.
	OnData func(fragment []byte)
}

// Transport performs one HTTP exchange. It returns the final status code,
// or an error when no response could be obtained.
type Transport interface {
	RoundTrip(ctx context.Context, req *OutboundRequest, hooks Hooks) (int, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *OutboundRequest, hooks Hooks) (int, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req *OutboundRequest, hooks Hooks) (int, error) {
	return f(ctx, req, hooks)
}

type connectTimeoutKey struct{}

// NetTransport is the default Transport on top of net/http.
type NetTransport struct {
	transport      *http.Transport
	readBufferSize int
}

// NetTransportOption configures a NetTransport.
type NetTransportOption func(*netTransportConfig)

type netTransportConfig struct {
	validateSSL    bool
	proxyURL       string
	readBufferSize int
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) NetTransportOption {
	return func(c *netTransportConfig) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) NetTransportOption {
	return func(c *netTransportConfig) {
		c.proxyURL = proxyURL
	}
}

// WithReadBufferSize bounds how many bytes one body fragment may carry.
func WithReadBufferSize(n int) NetTransportOption {
	return func(c *netTransportConfig) {
		c.readBufferSize = n
	}
}

func NewNetTransport(opts ...NetTransportOption) *NetTransport {
	cfg := netTransportConfig{
		validateSSL:    true,
		readBufferSize: DefaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.readBufferSize <= 0 {
		cfg.readBufferSize = DefaultReadBufferSize
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialWithConnectTimeout,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	// Configure TLS verification
	if !cfg.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	// Configure proxy if specified
	if cfg.proxyURL != "" {
		proxyURL, err := neturl.Parse(cfg.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &NetTransport{
		transport:      transport,
		readBufferSize: cfg.readBufferSize,
	}
}

// dialWithConnectTimeout reads the per-request connect timeout from ctx so
// pooled connections can be shared across requests with different settings.
func dialWithConnectTimeout(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{KeepAlive: 30 * time.Second}
	if timeout, ok := ctx.Value(connectTimeoutKey{}).(time.Duration); ok && timeout > 0 {
		d.Timeout = timeout
	}
	return d.DialContext(ctx, network, addr)
}

func (t *NetTransport) RoundTrip(ctx context.Context, req *OutboundRequest, hooks Hooks) (int, error) {
	opts := req.Options
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if opts.ConnectTimeout > 0 {
		ctx = context.WithValue(ctx, connectTimeoutKey{}, opts.ConnectTimeout)
	}

	body, formContentType, err := requestBody(req)
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), req.URL, body)
	if err != nil {
		return 0, err
	}
	// Names are assigned directly so HTTP/1.1 sends them with their casing.
	for _, f := range req.Headers.Fields() {
		if formContentType != "" && strings.EqualFold(f.Name, "Content-Type") {
			continue
		}
		if _, ok := managedHeaders[http.CanonicalHeaderKey(f.Name)]; ok {
			httpReq.Header.Set(f.Name, f.Value)
			continue
		}
		httpReq.Header[f.Name] = []string{f.Value}
	}
	if formContentType != "" {
		httpReq.Header.Set("Content-Type", formContentType)
	}
	if opts.UserAgent != "" && !req.Headers.Has("User-Agent") {
		httpReq.Header.Set("User-Agent", opts.UserAgent)
	}

	client := &http.Client{
		Transport:     t.transport,
		CheckRedirect: redirectPolicy(opts),
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer httpResp.Body.Close()

	if hooks.OnHeaderLine != nil {
		hooks.OnHeaderLine(httpResp.Proto + " " + httpResp.Status)
		for _, line := range headerLines(httpResp.Header) {
			hooks.OnHeaderLine(line)
		}
	}

	buf := make([]byte, t.readBufferSize)
	for {
		n, readErr := httpResp.Body.Read(buf)
		if n > 0 && hooks.OnData != nil {
			hooks.OnData(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return httpResp.StatusCode, readErr
		}
	}

	return httpResp.StatusCode, nil
}

func redirectPolicy(opts TransportOptions) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !opts.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if opts.MaxRedirects >= 0 && len(via) > opts.MaxRedirects {
			return fmt.Errorf("maximum (%d) redirects followed", opts.MaxRedirects)
		}
		return nil
	}
}

// managedHeaders are looked up by net/http under their canonical names.
var managedHeaders = map[string]struct{}{
	"Accept-Encoding":   {},
	"Connection":        {},
	"Host":              {},
	"Range":             {},
	"User-Agent":        {},
	"Content-Length":    {},
	"Transfer-Encoding": {},
	"Trailer":           {},
}

// requestBody picks the payload. Form fields are submitted as
// multipart/form-data, whose content type is returned alongside.
func requestBody(req *OutboundRequest) (io.Reader, string, error) {
	if len(req.Fields) == 0 {
		if len(req.Body) == 0 {
			return nil, "", nil
		}
		return bytes.NewReader(req.Body), "", nil
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range req.Fields {
		if err := writer.WriteField(f.Key, f.Value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func headerLines(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		for _, v := range h[name] {
			lines = append(lines, name+": "+v)
		}
	}
	return lines
}

// IsTimeout reports whether err came from a connect or total timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
