package http

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is the outcome of a request. Header names are lowercased. Body is
// empty when the response was streamed to a chunk callback.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
	// Attempts is the attempt number that produced this response.
	Attempts int
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// ErrNullJSON is returned by Response.JSON when the body is the JSON literal
// null.
var ErrNullJSON = errors.New("error decoding JSON: body is null")

// JSON decodes the body into v. A null body is an error.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return err
	}
	if gjson.ParseBytes(r.Body).Type == gjson.Null {
		return ErrNullJSON
	}
	return nil
}

// Get looks up a gjson path in a JSON body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// Blob renders every body byte as a base-2 number followed by a space.
func (r *Response) Blob() string {
	var sb strings.Builder
	for _, b := range r.Body {
		sb.WriteString(strconv.FormatUint(uint64(b), 2))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func (r *Response) Header(key string) string {
	return r.Headers[strings.ToLower(key)]
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

// IsOK reports a 2xx status.
func (r *Response) IsOK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
