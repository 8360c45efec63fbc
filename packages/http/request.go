package http

import (
	"fmt"
	"strings"
	"time"
)

// Request describes a call before it is validated and encoded.
type Request struct {
	Method  string
	URL     string
	Headers *Headers
	Body    Body
	Query   map[string]any
	// OnChunk switches the response to streaming mode when set.
	OnChunk ChunkFunc
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: &Headers{},
		Query:   make(map[string]any),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = &Headers{}
	}
	r.Headers.Set(key, value)
	return r
}

func (r *Request) SetBody(body Body) *Request {
	r.Body = body
	return r
}

func (r *Request) SetQueryParam(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(map[string]any)
	}
	r.Query[key] = value
	return r
}

func (r *Request) SetChunkFunc(fn ChunkFunc) *Request {
	r.OnChunk = fn
	return r
}

// BuildURL returns the URL with the query merged in.
func (r *Request) BuildURL() (string, error) {
	return MergeQuery(r.URL, r.Query)
}

// TransportOptions are the per-request knobs the transport must honor.
type TransportOptions struct {
	Timeout         time.Duration
	ConnectTimeout  time.Duration
	FollowRedirects bool
	// MaxRedirects below zero means unlimited.
	MaxRedirects int
	UserAgent    string
}

// OutboundRequest is a fully formed request ready for a Transport.
type OutboundRequest struct {
	Method  Method
	URL     string
	Headers *Headers
	Body    []byte
	// Fields, when non-empty, are sent as a standard form submission instead
	// of Body.
	Fields  []KeyValue
	Options TransportOptions
}

// HeaderLines returns the headers in the wire format the transport expects.
func (o *OutboundRequest) HeaderLines() []string {
	return o.Headers.Lines()
}

// BuildOutbound validates and encodes req against cfg: method check, body
// encoding, header merge, query merge and transport options, in that order.
func BuildOutbound(cfg Config, req *Request) (*OutboundRequest, error) {
	method, err := ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	headers := cfg.Headers.Clone().Merge(req.Headers)

	codec := Codec{Boundaries: cfg.Boundaries}
	wire, err := codec.Encode(ParseContentType(headers.Get("Content-Type")), req.Body)
	if err != nil {
		return nil, err
	}
	if wire.ContentType != "" {
		headers.Set(contentTypeHeaderName(headers), wire.ContentType)
	}

	target, err := MergeQuery(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	return &OutboundRequest{
		Method:  method,
		URL:     target,
		Headers: headers,
		Body:    wire.Bytes,
		Fields:  wire.Fields,
		Options: TransportOptions{
			Timeout:         cfg.Timeout,
			ConnectTimeout:  cfg.ConnectTimeout,
			FollowRedirects: cfg.FollowRedirects,
			MaxRedirects:    cfg.MaxRedirects,
			UserAgent:       cfg.UserAgent,
		},
	}, nil
}

// contentTypeHeaderName keeps the caller's casing when a content-type header
// already exists.
func contentTypeHeaderName(h *Headers) string {
	for _, f := range h.Fields() {
		if strings.EqualFold(f.Name, "Content-Type") {
			return f.Name
		}
	}
	return "Content-Type"
}

// EncodeQuery renders query with the form flatten rule, keys sorted.
func EncodeQuery(query map[string]any) (string, error) {
	pairs, err := Flatten(query)
	if err != nil {
		return "", &EncodingError{ContentType: ContentTypeForm, Err: fmt.Errorf("query: %w", err)}
	}
	return encodePairs(pairs), nil
}

// MergeQuery appends the encoded query to rawURL after dropping a single
// trailing '?'. A URL that already carries a query string is extended with
// '&'.
func MergeQuery(rawURL string, query map[string]any) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	encoded, err := EncodeQuery(query)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(rawURL, "?")
	if encoded == "" {
		return base, nil
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + encoded, nil
}
