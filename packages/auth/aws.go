package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// unsignedPayload is used when the body is assembled by the transport and
// its bytes are not known up front.
const unsignedPayload = "UNSIGNED-PAYLOAD"

// AWSCredentials identify the caller and the signing scope.
type AWSCredentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	Service      string
}

// AWSSigner signs requests with AWS Signature Version 4.
type AWSSigner struct {
	Credentials AWSCredentials
	// Now is the signing clock; nil means time.Now.
	Now func() time.Time
}

func AWS(creds AWSCredentials) *AWSSigner {
	return &AWSSigner{Credentials: creds}
}

// Sign sets Host, X-Amz-Date, X-Amz-Content-Sha256 and Authorization, plus
// X-Amz-Security-Token for temporary credentials.
func (s *AWSSigner) Sign(ctx context.Context, req *fetchhttp.OutboundRequest) error {
	creds := s.Credentials
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return errors.New("AWS auth credentials not provided")
	}

	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now().UTC()
	amzDate := t.Format("20060102T150405Z")
	dateStamp := t.Format("20060102")

	payloadHash := sha256Hex(req.Body)
	if len(req.Fields) > 0 {
		payloadHash = unsignedPayload
	}

	req.Headers.Set("Host", parsedURL.Host)
	req.Headers.Set("X-Amz-Date", amzDate)
	req.Headers.Set("X-Amz-Content-Sha256", payloadHash)
	if creds.SessionToken != "" {
		req.Headers.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req.Headers)

	canonicalURI := parsedURL.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}

	canonicalRequest := strings.Join([]string{
		req.Method.String(),
		canonicalURI,
		canonicalQueryString(parsedURL.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, creds.Region, creds.Service)

	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := signatureKey(creds.SecretKey, dateStamp, creds.Region, creds.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	req.Headers.Set("Authorization", fmt.Sprintf("AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		creds.AccessKey, credentialScope, signedHeaders, signature))
	return nil
}

// canonicalizeHeaders signs host and every x-amz-* header.
func canonicalizeHeaders(h *fetchhttp.Headers) (string, string) {
	values := make(map[string]string)
	for _, f := range h.Fields() {
		name := strings.ToLower(f.Name)
		if name == "host" || strings.HasPrefix(name, "x-amz-") {
			values[name] = strings.Join(strings.Fields(f.Value), " ")
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte(':')
		sb.WriteString(values[name])
		sb.WriteByte('\n')
	}
	return sb.String(), strings.Join(names, ";")
}

func canonicalQueryString(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			pairs = append(pairs, awsEscape(k)+"="+awsEscape(v))
		}
	}
	return strings.Join(pairs, "&")
}

// awsEscape percent-encodes everything but unreserved characters, spaces
// as %20.
func awsEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func signatureKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}
