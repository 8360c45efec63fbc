package http

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		header   string
		expected ContentType
	}{
		{"", ContentTypeNone},
		{"application/json", ContentTypeJSON},
		{"application/json; charset=utf-8", ContentTypeJSON},
		{"Application/JSON", ContentTypeJSON},
		{"application/x-www-form-urlencoded", ContentTypeForm},
		{"multipart/form-data", ContentTypeMultipart},
		{"multipart/form-data; boundary=abc", ContentTypeMultipart},
		{"application/graphql", ContentTypeGraphQL},
		{"text/plain", ContentTypeRaw},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseContentType(tt.header))
		})
	}
}

func TestFlatten(t *testing.T) {
	pairs, err := Flatten(map[string]any{
		"name": "ada",
		"user": map[string]any{
			"age":   36,
			"roles": []string{"admin", "dev"},
		},
		"active":  true,
		"deleted": false,
		"nothing": nil,
		"ratio":   0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, []KeyValue{
		{Key: "active", Value: "1"},
		{Key: "deleted", Value: ""},
		{Key: "name", Value: "ada"},
		{Key: "nothing", Value: ""},
		{Key: "ratio", Value: "0.5"},
		{Key: "user[age]", Value: "36"},
		{Key: "user[roles][0]", Value: "admin"},
		{Key: "user[roles][1]", Value: "dev"},
	}, pairs)
}

func TestFlatten_Errors(t *testing.T) {
	_, err := Flatten(map[string]any{"fn": func() {}})
	assert.Error(t, err)

	_, err = Flatten("scalar")
	assert.Error(t, err)

	_, err = Flatten(map[int]string{1: "a"})
	assert.Error(t, err)

	_, err = Flatten(map[string]any{"f": File{Path: "/tmp/x"}})
	assert.Error(t, err)
}

func TestEncode_JSON(t *testing.T) {
	body := Values{"name": "ada", "nested": map[string]any{"n": 1}}

	wire, err := Encode(ContentTypeJSON, body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(wire.Bytes, &decoded))
	assert.Equal(t, "ada", decoded["name"])
	assert.Equal(t, map[string]any{"n": float64(1)}, decoded["nested"])
	assert.Empty(t, wire.ContentType)

	wire, err = Encode(ContentTypeJSON, List{1, "two"})
	require.NoError(t, err)
	assert.JSONEq(t, `[1, "two"]`, string(wire.Bytes))
}

func TestEncode_JSONNotSerializable(t *testing.T) {
	_, err := Encode(ContentTypeJSON, Values{"bad": math.Inf(1)})

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, ContentTypeJSON, encErr.ContentType)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEncode_Form(t *testing.T) {
	wire, err := Encode(ContentTypeForm, Values{
		"name": "John Doe",
		"tags": []string{"a b", "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, "name=John+Doe&tags%5B0%5D=a+b&tags%5B1%5D=c", string(wire.Bytes))
	assert.Equal(t, MIMEFormURLEncoded, wire.ContentType)
}

func TestEncode_MultipartWithoutFilesIsURLEncoded(t *testing.T) {
	wire, err := Encode(ContentTypeMultipart, Values{"a": "1"})
	require.NoError(t, err)

	assert.Equal(t, "a=1", string(wire.Bytes))
	assert.Equal(t, MIMEFormURLEncoded, wire.ContentType)
}

func TestEncode_MultipartWithFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0644))

	codec := Codec{Boundaries: FixedBoundary("BOUND")}
	wire, err := codec.Encode(ContentTypeMultipart, Values{
		"user":   map[string]any{"name": "ada"},
		"avatar": File{Path: path},
	})
	require.NoError(t, err)

	assert.Equal(t, "multipart/form-data; boundary=BOUND", wire.ContentType)
	body := string(wire.Bytes)
	assert.Contains(t, body, "Content-Disposition: form-data; name=\"user[name]\"\r\n\r\nada\r\n")
	assert.Contains(t, body, "name=\"avatar\"; filename=\"avatar.png\"\r\nContent-Type: image/png\r\n\r\npng-bytes\r\n")
	assert.Less(t, strings.Index(body, "user[name]"), strings.Index(body, "avatar"))
	assert.True(t, strings.HasSuffix(body, "--BOUND--\r\n"))
}

func TestEncode_MultipartMissingFile(t *testing.T) {
	_, err := Encode(ContentTypeForm, Values{"doc": File{Path: filepath.Join(t.TempDir(), "nope")}})
	assert.ErrorIs(t, err, ErrFileAccess)
}

func TestEncode_GraphQL(t *testing.T) {
	query := GraphQL(`query { user(id: 1) { name } }`)

	wire, err := Encode(ContentTypeGraphQL, query)
	require.NoError(t, err)
	assert.Equal(t, string(query), string(wire.Bytes))

	_, err = Encode(ContentTypeGraphQL, Values{"query": "x"})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEncode_DefaultPassesFieldsThrough(t *testing.T) {
	for _, ct := range []ContentType{ContentTypeNone, ContentTypeRaw} {
		wire, err := Encode(ct, Values{"name": "ada", "meta": map[string]any{"x": 1}})
		require.NoError(t, err)

		assert.Empty(t, wire.Bytes)
		assert.Equal(t, []KeyValue{{Key: "meta[x]", Value: "1"}, {Key: "name", Value: "ada"}}, wire.Fields)
	}
}

func TestEncode_RawAndEmpty(t *testing.T) {
	for _, ct := range []ContentType{ContentTypeNone, ContentTypeJSON, ContentTypeForm, ContentTypeGraphQL, ContentTypeRaw} {
		wire, err := Encode(ct, Raw("<xml/>"))
		require.NoError(t, err)
		assert.Equal(t, "<xml/>", string(wire.Bytes))

		wire, err = Encode(ct, nil)
		require.NoError(t, err)
		assert.True(t, wire.IsEmpty())
	}
}

func TestEncode_FormDataWinsOverContentType(t *testing.T) {
	form := NewFormDataWithBoundary(FixedBoundary("Z")).AddContent("f", []byte("x"), "x.bin")

	wire, err := Encode(ContentTypeJSON, form)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=Z", wire.ContentType)

	expected, err := form.Build()
	require.NoError(t, err)
	assert.Equal(t, expected, wire.Bytes)
}
