package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// captureTransport records the last request it saw and answers 200.
type captureTransport struct {
	last  *fetchhttp.OutboundRequest
	calls int
}

func (c *captureTransport) RoundTrip(ctx context.Context, req *fetchhttp.OutboundRequest, hooks fetchhttp.Hooks) (int, error) {
	c.last = req
	c.calls++
	return 200, nil
}

func TestBasic(t *testing.T) {
	capture := &captureTransport{}
	client := fetchhttp.NewClient(fetchhttp.WithTransport(capture), WithSigner(Basic("Aladdin", "open sesame")))

	_, err := client.Get(context.Background(), "http://example.test/", nil)
	require.NoError(t, err)
	assert.Equal(t, "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==", capture.last.Headers.Get("Authorization"))
}

func TestBearerAndHeader(t *testing.T) {
	capture := &captureTransport{}
	client := fetchhttp.NewClient(
		fetchhttp.WithTransport(capture),
		WithSigner(Bearer("tok")),
		WithSigner(Header("X-Api-Key", "k1")),
	)

	_, err := client.Get(context.Background(), "http://example.test/", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", capture.last.Headers.Get("authorization"))
	assert.Equal(t, "k1", capture.last.Headers.Get("x-api-key"))
}

func TestSignerDoesNotMutateSharedRequest(t *testing.T) {
	capture := &captureTransport{}
	transport := Transport(capture, Bearer("tok"))

	req := &fetchhttp.OutboundRequest{Method: fetchhttp.MethodGet, URL: "http://example.test/", Headers: &fetchhttp.Headers{}}
	_, err := transport.RoundTrip(context.Background(), req, fetchhttp.Hooks{})
	require.NoError(t, err)

	assert.False(t, req.Headers.Has("Authorization"))
	assert.True(t, capture.last.Headers.Has("Authorization"))
}

func TestSignerError(t *testing.T) {
	capture := &captureTransport{}
	failing := SignerFunc(func(context.Context, *fetchhttp.OutboundRequest) error {
		return errors.New("no credentials")
	})
	client := fetchhttp.NewClient(fetchhttp.WithTransport(capture), WithSigner(failing))

	_, err := client.Get(context.Background(), "http://example.test/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchhttp.ErrTransport)
	assert.Contains(t, err.Error(), "no credentials")
	assert.Zero(t, capture.calls)
}

func TestSignerRunsPerAttempt(t *testing.T) {
	calls := 0
	statuses := []int{503, 200}
	transport := fetchhttp.TransportFunc(func(ctx context.Context, req *fetchhttp.OutboundRequest, hooks fetchhttp.Hooks) (int, error) {
		status := statuses[calls]
		calls++
		return status, nil
	})
	signed := 0
	counting := SignerFunc(func(ctx context.Context, req *fetchhttp.OutboundRequest) error {
		signed++
		return nil
	})

	client := fetchhttp.NewClient(
		fetchhttp.WithTransport(transport),
		WithSigner(counting),
		fetchhttp.WithMaxRetries(2),
		fetchhttp.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)

	resp, err := client.Get(context.Background(), "http://example.test/", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 2, signed)
}

func TestAWSSigner(t *testing.T) {
	signer := AWS(AWSCredentials{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Region:    "us-east-1",
		Service:   "execute-api",
	})
	signer.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	req := &fetchhttp.OutboundRequest{
		Method:  fetchhttp.MethodPost,
		URL:     "https://api.example.com/items?b=2&a=1",
		Headers: (&fetchhttp.Headers{}).Set("X-Amz-Target", "Service.Op"),
		Body:    []byte(`{"k":"v"}`),
	}
	require.NoError(t, signer.Sign(context.Background(), req))

	assert.Equal(t, "api.example.com", req.Headers.Get("Host"))
	assert.Equal(t, "20240102T030405Z", req.Headers.Get("X-Amz-Date"))
	assert.Equal(t, sha256Hex([]byte(`{"k":"v"}`)), req.Headers.Get("X-Amz-Content-Sha256"))

	authz := req.Headers.Get("Authorization")
	assert.True(t, strings.HasPrefix(authz, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240102/us-east-1/execute-api/aws4_request, "))
	assert.Contains(t, authz, "SignedHeaders=host;x-amz-content-sha256;x-amz-date;x-amz-target, ")
	assert.Regexp(t, `Signature=[0-9a-f]{64}$`, authz)

	// Signing is deterministic for a fixed clock.
	again := &fetchhttp.OutboundRequest{
		Method:  req.Method,
		URL:     req.URL,
		Headers: (&fetchhttp.Headers{}).Set("X-Amz-Target", "Service.Op"),
		Body:    req.Body,
	}
	require.NoError(t, signer.Sign(context.Background(), again))
	assert.Equal(t, authz, again.Headers.Get("Authorization"))
}

func TestAWSSignerFieldsAndSession(t *testing.T) {
	signer := AWS(AWSCredentials{AccessKey: "a", SecretKey: "s", SessionToken: "sess", Region: "eu-west-1", Service: "s3"})

	req := &fetchhttp.OutboundRequest{
		Method:  fetchhttp.MethodPost,
		URL:     "https://bucket.example.com",
		Headers: &fetchhttp.Headers{},
		Fields:  []fetchhttp.KeyValue{{Key: "k", Value: "v"}},
	}
	require.NoError(t, signer.Sign(context.Background(), req))

	assert.Equal(t, unsignedPayload, req.Headers.Get("X-Amz-Content-Sha256"))
	assert.Equal(t, "sess", req.Headers.Get("X-Amz-Security-Token"))
	assert.Contains(t, req.Headers.Get("Authorization"), "x-amz-security-token")
}

func TestAWSSignerMissingCredentials(t *testing.T) {
	req := &fetchhttp.OutboundRequest{URL: "https://x", Headers: &fetchhttp.Headers{}}
	assert.Error(t, AWS(AWSCredentials{}).Sign(context.Background(), req))
}

func TestCanonicalQueryString(t *testing.T) {
	assert.Equal(t, "a=a&a=b%20c&z=1", canonicalQueryString(map[string][]string{
		"z": {"1"},
		"a": {"b c", "a"},
	}))
	assert.Equal(t, "", canonicalQueryString(nil))
}

func TestParseDigestChallenge(t *testing.T) {
	c, ok := ParseDigestChallenge(`Digest realm="test@host.com", qop="auth,auth-int", nonce="dcd98b", opaque="5ccc"`)
	require.True(t, ok)
	assert.Equal(t, "test@host.com", c.Realm)
	assert.Equal(t, "dcd98b", c.Nonce)
	assert.Equal(t, "auth", c.Qop)
	assert.Equal(t, "5ccc", c.Opaque)

	_, ok = ParseDigestChallenge(`Basic realm="x"`)
	assert.False(t, ok)

	_, ok = ParseDigestChallenge(`Digest realm="x"`)
	assert.False(t, ok)
}

func TestDigestAuthorization(t *testing.T) {
	// RFC 2617 section 3.5 example
	creds := DigestCredentials{
		Username: "Mufasa",
		Password: "Circle Of Life",
		Cnonce:   func() (string, error) { return "0a4f113b", nil },
	}
	challenge := DigestChallenge{
		Realm:  "testrealm@host.com",
		Nonce:  "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		Qop:    "auth",
		Opaque: "5ccc069c403ebaf9f0171e9517f40e41",
	}

	header, err := creds.Authorization(challenge, "GET", "/dir/index.html")
	require.NoError(t, err)
	assert.Contains(t, header, `response="6629fae49393a05397450978507c4ef1"`)
	assert.Contains(t, header, "qop=auth, nc=00000001, ")
	assert.True(t, strings.HasPrefix(header, `Digest username="Mufasa"`))
}

func TestDigestTransport(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		authz := r.Header.Get("Authorization")
		if authz == "" {
			w.Header().Set("WWW-Authenticate", `Digest realm="api", nonce="abc123", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("challenge body"))
			return
		}
		assert.Contains(t, authz, `username="user"`)
		assert.Contains(t, authz, `uri="/secret?x=1"`)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("welcome"))
	}))
	defer server.Close()

	client := fetchhttp.NewClient(WithDigest(DigestCredentials{Username: "user", Password: "pass"}))

	resp, err := client.Get(context.Background(), server.URL+"/secret?x=1", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "welcome", resp.Text())
	assert.Equal(t, "text/plain", resp.Header("content-type"))
	assert.Equal(t, 2, attempts)
}

func TestDigestTransportReplaysNonChallenge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Plain", "yes")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()

	client := fetchhttp.NewClient(WithDigest(DigestCredentials{Username: "u", Password: "p"}))

	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, "denied", resp.Text())
	assert.Equal(t, "yes", resp.Header("X-Plain"))
}
