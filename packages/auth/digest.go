package auth

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/url"
	"strings"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// DigestChallenge is a parsed WWW-Authenticate: Digest header.
type DigestChallenge struct {
	Realm     string
	Nonce     string
	Qop       string
	Opaque    string
	Algorithm string
}

// ParseDigestChallenge parses the WWW-Authenticate header from a 401 response.
// It reports false when the header is not a Digest challenge.
func ParseDigestChallenge(header string) (DigestChallenge, bool) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, "Digest") {
		return DigestChallenge{}, false
	}

	params := parseAuthParams(rest)
	c := DigestChallenge{
		Realm:     params["realm"],
		Nonce:     params["nonce"],
		Opaque:    params["opaque"],
		Algorithm: params["algorithm"],
	}
	// Prefer "auth" when the server offers several qop values
	for _, q := range strings.Split(params["qop"], ",") {
		q = strings.TrimSpace(q)
		if q == "auth" {
			c.Qop = q
			break
		}
	}
	return c, c.Nonce != ""
}

// parseAuthParams splits key=value pairs, honoring commas inside quotes.
func parseAuthParams(s string) map[string]string {
	result := make(map[string]string)
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])

	for _, part := range parts {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		result[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return result
}

// DigestCredentials answers a DigestChallenge.
type DigestCredentials struct {
	Username string
	Password string
	// Cnonce generates client nonces; nil uses crypto/rand.
	Cnonce func() (string, error)
}

// Authorization builds the Authorization header value for method and uri.
func (d DigestCredentials) Authorization(c DigestChallenge, method, uri string) (string, error) {
	newHash := md5.New
	algorithm := strings.ToUpper(c.Algorithm)
	if strings.HasPrefix(algorithm, "SHA-256") {
		newHash = sha256.New
	}

	ha1 := hashHex(newHash, d.Username+":"+c.Realm+":"+d.Password)
	ha2 := hashHex(newHash, method+":"+uri)

	var cnonce, nc, response string
	if c.Qop != "" {
		gen := d.Cnonce
		if gen == nil {
			gen = GenerateCnonce
		}
		var err error
		if cnonce, err = gen(); err != nil {
			return "", err
		}
		nc = "00000001"
		response = hashHex(newHash, strings.Join([]string{ha1, c.Nonce, nc, cnonce, c.Qop, ha2}, ":"))
	} else {
		response = hashHex(newHash, ha1+":"+c.Nonce+":"+ha2)
	}

	parts := []string{
		fmt.Sprintf(`username="%s"`, d.Username),
		fmt.Sprintf(`realm="%s"`, c.Realm),
		fmt.Sprintf(`nonce="%s"`, c.Nonce),
		fmt.Sprintf(`uri="%s"`, uri),
		fmt.Sprintf(`response="%s"`, response),
	}
	if c.Algorithm != "" {
		parts = append(parts, "algorithm="+c.Algorithm)
	}
	if c.Qop != "" {
		parts = append(parts, "qop="+c.Qop, "nc="+nc, fmt.Sprintf(`cnonce="%s"`, cnonce))
	}
	if c.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, c.Opaque))
	}

	return "Digest " + strings.Join(parts, ", "), nil
}

// GenerateCnonce generates a random client nonce
func GenerateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashHex(newHash func() hash.Hash, s string) string {
	h := newHash()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// Digest wraps next with challenge-response authentication. The first
// exchange is held back; when it is a 401 with a Digest challenge the request
// is replayed with credentials and only the second exchange reaches the
// caller's hooks. Otherwise the held exchange is replayed to the hooks as-is.
func Digest(next fetchhttp.Transport, creds DigestCredentials) fetchhttp.Transport {
	return fetchhttp.TransportFunc(func(ctx context.Context, req *fetchhttp.OutboundRequest, hooks fetchhttp.Hooks) (int, error) {
		var held heldExchange
		status, err := next.RoundTrip(ctx, req, held.hooks())
		if err != nil {
			return status, err
		}

		challenge, ok := DigestChallenge{}, false
		if status == 401 {
			challenge, ok = ParseDigestChallenge(held.header("WWW-Authenticate"))
		}
		if !ok {
			held.replay(hooks)
			return status, nil
		}

		authorization, err := creds.Authorization(challenge, req.Method.String(), requestURI(req.URL))
		if err != nil {
			return 0, err
		}
		signed := cloneRequest(req)
		signed.Headers.Set("Authorization", authorization)
		return next.RoundTrip(ctx, signed, hooks)
	})
}

// WithDigest installs Digest on top of the client's current transport.
func WithDigest(creds DigestCredentials) fetchhttp.ClientOption {
	return func(c *fetchhttp.Config) {
		next := c.Transport
		if next == nil {
			next = fetchhttp.NewNetTransport()
		}
		c.Transport = Digest(next, creds)
	}
}

func requestURI(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.RequestURI()
}

type heldExchange struct {
	lines []string
	data  [][]byte
}

func (h *heldExchange) hooks() fetchhttp.Hooks {
	return fetchhttp.Hooks{
		OnHeaderLine: func(line string) {
			h.lines = append(h.lines, line)
		},
		OnData: func(fragment []byte) {
			h.data = append(h.data, append([]byte(nil), fragment...))
		},
	}
}

func (h *heldExchange) header(name string) string {
	for _, line := range h.lines {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (h *heldExchange) replay(hooks fetchhttp.Hooks) {
	if hooks.OnHeaderLine != nil {
		for _, line := range h.lines {
			hooks.OnHeaderLine(line)
		}
	}
	if hooks.OnData != nil {
		for _, fragment := range h.data {
			hooks.OnData(fragment)
		}
	}
}
