// Package sse consumes Server-Sent Events streams through the fetch client.
package sse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

const eventStreamMIME = "text/event-stream"

// ErrUnexpectedResponse is returned when the server answers with something
// other than a 2xx event stream.
var ErrUnexpectedResponse = errors.New("unexpected SSE response")

// Client is an SSE client that connects to an SSE endpoint and receives events.
type Client struct {
	fetch       *fetchhttp.Client
	url         string
	headers     map[string]string
	timeout     time.Duration
	lastEventID string
}

// Option is a functional option for configuring an SSE Client.
type Option func(*Client)

// WithFetchClient sets the client used to issue the request.
func WithFetchClient(client *fetchhttp.Client) Option {
	return func(c *Client) {
		c.fetch = client
	}
}

// WithHeaders sets custom headers for the SSE request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithTimeout bounds the whole stream, connection included.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLastEventID sets the Last-Event-ID header for reconnection.
func WithLastEventID(id string) Option {
	return func(c *Client) {
		c.lastEventID = id
	}
}

// NewClient creates a new SSE client.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		headers: make(map[string]string),
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.fetch == nil {
		c.fetch = fetchhttp.DefaultClient
	}
	c.fetch = c.fetch.With(fetchhttp.WithTimeout(c.timeout))

	return c
}

// StreamResult contains the results of an SSE stream.
type StreamResult struct {
	Events      []Event
	LastEventID string
	Error       error
	Duration    time.Duration
}

// Stream collects events until the server closes the stream, ctx is
// cancelled or maxEvents (when positive) have arrived.
func (c *Client) Stream(ctx context.Context, maxEvents int) *StreamResult {
	start := time.Now()
	result := &StreamResult{Events: make([]Event, 0)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := false
	decoder := NewDecoder(func(event Event) {
		if done {
			return
		}
		result.Events = append(result.Events, event)
		if maxEvents > 0 && len(result.Events) >= maxEvents {
			done = true
			cancel()
		}
	})

	err := c.run(ctx, decoder)
	if err != nil && !done {
		result.Error = err
		result.Events = result.Events[:0]
	}
	result.LastEventID = decoder.LastEventID()
	result.Duration = time.Since(start)

	return result
}

// StreamWithHandler calls handler for each event until the stream ends or
// ctx is cancelled, in which case ctx's error is returned.
func (c *Client) StreamWithHandler(ctx context.Context, handler EventHandler) error {
	err := c.run(ctx, NewDecoder(handler))
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) run(ctx context.Context, decoder *Decoder) error {
	req := fetchhttp.NewRequest(fetchhttp.MethodGet.String(), c.url).
		SetHeader("Accept", eventStreamMIME).
		SetHeader("Cache-Control", "no-cache").
		SetChunkFunc(decoder.OnChunk)

	for k, v := range c.headers {
		req.SetHeader(k, v)
	}
	if c.lastEventID != "" {
		req.SetHeader("Last-Event-ID", c.lastEventID)
	}

	resp, err := c.fetch.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	contentType := resp.ContentType()
	if !strings.HasPrefix(contentType, eventStreamMIME) {
		return fmt.Errorf("%w: unexpected content type: %s (expected %s)", ErrUnexpectedResponse, contentType, eventStreamMIME)
	}
	if !resp.IsOK() {
		return fmt.Errorf("%w: unexpected status: %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	decoder.Flush()
	return nil
}
