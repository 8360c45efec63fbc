package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input    string
		expected Method
	}{
		{"", MethodGet},
		{"GET", MethodGet},
		{"POST", MethodPost},
		{"PATCH", MethodPatch},
		{"OPTIONS", MethodOptions},
		{"TRACE", MethodTrace},
		{"CONNECT", MethodConnect},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := ParseMethod(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}

	for _, name := range []string{"FETCH", "get", "Post", " GET"} {
		_, err := ParseMethod(name)
		var methodErr *UnsupportedMethodError
		require.ErrorAs(t, err, &methodErr, name)
		assert.Equal(t, name, methodErr.Method)
		assert.ErrorIs(t, err, ErrUnsupportedMethod)
	}
}

func TestHeaders(t *testing.T) {
	h := &Headers{}
	h.Set("Content-Type", "text/plain").Set("X-Trace", "1").Set("content-type", "application/json")

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))
	assert.True(t, h.Has("x-trace"))
	assert.Equal(t, []string{"content-type: application/json", "X-Trace: 1"}, h.Lines())

	h.Del("Content-Type")
	assert.False(t, h.Has("content-type"))
	assert.Equal(t, []string{"X-Trace: 1"}, h.Lines())

	h.Set("Accept", "*/*")
	assert.Equal(t, "*/*", h.Get("accept"))
	assert.Equal(t, "1", h.Get("x-trace"))
}

func TestHeaders_NilAndClone(t *testing.T) {
	var h *Headers
	assert.Equal(t, "", h.Get("x"))
	assert.False(t, h.Has("x"))
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Lines())

	clone := h.Clone()
	require.NotNil(t, clone)
	clone.Set("A", "1")

	orig := NewHeaders(map[string]string{"A": "1"})
	copied := orig.Clone().Set("A", "2")
	assert.Equal(t, "1", orig.Get("a"))
	assert.Equal(t, "2", copied.Get("a"))
}

func TestHeaders_Merge(t *testing.T) {
	base := (&Headers{}).Set("Accept", "text/html").Set("X-A", "1")
	override := (&Headers{}).Set("accept", "application/json").Set("X-B", "2")

	merged := base.Clone().Merge(override).Merge(nil)
	assert.Equal(t, []string{"accept: application/json", "X-A: 1", "X-B: 2"}, merged.Lines())
	assert.Equal(t, "text/html", base.Get("Accept"))
}

func TestEncodeQuery(t *testing.T) {
	encoded, err := EncodeQuery(map[string]any{
		"q":      "go lang",
		"page":   2,
		"filter": map[string]any{"tag": []string{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "filter%5Btag%5D%5B0%5D=a&filter%5Btag%5D%5B1%5D=b&page=2&q=go+lang", encoded)

	_, err = EncodeQuery(map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestMergeQuery(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		query    map[string]any
		expected string
	}{
		{"no query", "http://h/p", nil, "http://h/p"},
		{"empty query keeps trailing mark", "http://h/p?", map[string]any{}, "http://h/p?"},
		{"simple", "http://h/p", map[string]any{"a": "1", "b": "2"}, "http://h/p?a=1&b=2"},
		{"trailing question mark", "http://h/p?", map[string]any{"a": "1"}, "http://h/p?a=1"},
		{"existing query", "http://h/p?x=9", map[string]any{"a": "1"}, "http://h/p?x=9&a=1"},
		{"only empty values", "http://h/p?", map[string]any{"a": []string{}}, "http://h/p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeQuery(tt.url, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRequest_Builder(t *testing.T) {
	var seen []Chunk
	req := NewRequest("POST", "http://h/items").
		SetHeader("X-Trace", "abc").
		SetBody(Values{"a": 1}).
		SetQueryParam("page", 3).
		SetChunkFunc(func(c Chunk) { seen = append(seen, c) })

	target, err := req.BuildURL()
	require.NoError(t, err)
	assert.Equal(t, "http://h/items?page=3", target)
	assert.Equal(t, "abc", req.Headers.Get("x-trace"))
	assert.NotNil(t, req.OnChunk)

	bare := &Request{URL: "http://h"}
	bare.SetHeader("A", "1").SetQueryParam("b", "2")
	assert.Equal(t, "1", bare.Headers.Get("a"))
	assert.Equal(t, "2", bare.Query["b"])
}

func TestBuildOutbound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headers = (&Headers{}).Set("Accept", "application/json").Set("X-Env", "test")
	cfg.UserAgent = "agent/1"
	cfg.Timeout = 3 * time.Second

	req := NewRequest("PATCH", "http://h/users/1?").
		SetHeader("content-type", "application/x-www-form-urlencoded").
		SetHeader("X-Env", "override").
		SetBody(Values{"name": "ada"}).
		SetQueryParam("v", 2)

	out, err := BuildOutbound(cfg, req)
	require.NoError(t, err)

	assert.Equal(t, MethodPatch, out.Method)
	assert.Equal(t, "http://h/users/1?v=2", out.URL)
	assert.Equal(t, "name=ada", string(out.Body))
	assert.Empty(t, out.Fields)
	assert.Equal(t, []string{
		"Accept: application/json",
		"X-Env: override",
		"content-type: application/x-www-form-urlencoded",
	}, out.HeaderLines())
	assert.Equal(t, "agent/1", out.Options.UserAgent)
	assert.Equal(t, 3*time.Second, out.Options.Timeout)
	assert.True(t, out.Options.FollowRedirects)

	assert.Equal(t, "test", cfg.Headers.Get("X-Env"))
}

func TestBuildOutbound_MultipartOverridesContentType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundaries = FixedBoundary("BB")

	form := NewFormData().AddContent("f", []byte("x"), "x.txt")
	req := NewRequest("POST", "http://h/upload").
		SetHeader("Content-Type", "multipart/form-data").
		SetBody(form)

	out, err := BuildOutbound(cfg, req)
	require.NoError(t, err)

	assert.Equal(t, form.ContentType(), out.Headers.Get("content-type"))
	assert.Equal(t, 1, out.Headers.Len())
}

func TestBuildOutbound_Errors(t *testing.T) {
	cfg := DefaultConfig()

	_, err := BuildOutbound(cfg, NewRequest("BREW", "http://h"))
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	req := NewRequest("POST", "http://h").
		SetHeader("Content-Type", "application/graphql").
		SetBody(Values{"query": "x"})
	_, err = BuildOutbound(cfg, req)
	assert.ErrorIs(t, err, ErrEncoding)
}
