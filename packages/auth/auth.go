package auth

import (
	"context"
	"encoding/base64"
	"fmt"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// Signer adds credentials to an outbound request. It receives a private
// copy and may modify its headers freely.
type Signer interface {
	Sign(ctx context.Context, req *fetchhttp.OutboundRequest) error
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, req *fetchhttp.OutboundRequest) error

func (f SignerFunc) Sign(ctx context.Context, req *fetchhttp.OutboundRequest) error {
	return f(ctx, req)
}

// Transport signs every request with signer before handing it to next.
func Transport(next fetchhttp.Transport, signer Signer) fetchhttp.Transport {
	return fetchhttp.TransportFunc(func(ctx context.Context, req *fetchhttp.OutboundRequest, hooks fetchhttp.Hooks) (int, error) {
		signed := cloneRequest(req)
		if err := signer.Sign(ctx, signed); err != nil {
			return 0, fmt.Errorf("failed to sign request: %w", err)
		}
		return next.RoundTrip(ctx, signed, hooks)
	})
}

// WithSigner installs signer on top of the client's current transport.
// A nil transport is resolved to the default NetTransport.
func WithSigner(signer Signer) fetchhttp.ClientOption {
	return func(c *fetchhttp.Config) {
		next := c.Transport
		if next == nil {
			next = fetchhttp.NewNetTransport()
		}
		c.Transport = Transport(next, signer)
	}
}

func cloneRequest(req *fetchhttp.OutboundRequest) *fetchhttp.OutboundRequest {
	out := *req
	out.Headers = req.Headers.Clone()
	return &out
}

// Basic sets an RFC 7617 Authorization header.
func Basic(username, password string) Signer {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return Header("Authorization", "Basic "+encoded)
}

// Bearer sets an RFC 6750 Authorization header.
func Bearer(token string) Signer {
	return Header("Authorization", "Bearer "+token)
}

// Header sets a fixed header, e.g. an API key.
func Header(name, value string) Signer {
	return SignerFunc(func(ctx context.Context, req *fetchhttp.OutboundRequest) error {
		req.Headers.Set(name, value)
		return nil
	})
}
