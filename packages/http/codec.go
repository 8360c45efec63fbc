package http

import (
	"encoding/json"
	"errors"
	"fmt"
)

// WireBody is an encoded request body. Either Bytes or Fields carries the
// payload: Fields are handed to the transport for a standard form
// submission. ContentType, when set, replaces the request's content-type
// header.
type WireBody struct {
	Bytes       []byte
	Fields      []KeyValue
	ContentType string
}

// IsEmpty reports whether there is nothing to send.
func (w *WireBody) IsEmpty() bool {
	return w == nil || (len(w.Bytes) == 0 && len(w.Fields) == 0)
}

// Codec turns a Body into wire bytes according to a ContentType.
type Codec struct {
	// Boundaries supplies boundaries for multipart bodies the codec assembles
	// itself. Nil uses UUIDBoundary.
	Boundaries BoundaryGenerator
}

// Encode encodes body with the default codec.
func Encode(ct ContentType, body Body) (*WireBody, error) {
	return Codec{}.Encode(ct, body)
}

// Encode dispatches on the body variant and the declared content type. A
// *FormData body ignores ct and reports its own content type.
func (c Codec) Encode(ct ContentType, body Body) (*WireBody, error) {
	switch b := body.(type) {
	case nil:
		return &WireBody{}, nil
	case *FormData:
		if b == nil {
			return &WireBody{}, nil
		}
		data, contentType, err := b.Payload()
		if err != nil {
			return nil, err
		}
		return &WireBody{Bytes: data, ContentType: contentType}, nil
	case Raw:
		return &WireBody{Bytes: []byte(b)}, nil
	}

	switch ct {
	case ContentTypeJSON:
		return c.encodeJSON(body)
	case ContentTypeForm, ContentTypeMultipart:
		return c.encodeForm(ct, body)
	case ContentTypeGraphQL:
		return c.encodeGraphQL(body)
	case ContentTypeNone, ContentTypeRaw:
		return c.encodeDefault(ct, body)
	default:
		return nil, &EncodingError{ContentType: ct, Err: fmt.Errorf("unknown content type %d", int(ct))}
	}
}

func (c Codec) encodeJSON(body Body) (*WireBody, error) {
	var v any
	switch b := body.(type) {
	case Values:
		v = map[string]any(b)
	case List:
		v = []any(b)
	case GraphQL:
		v = string(b)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{ContentType: ContentTypeJSON, Err: err}
	}
	return &WireBody{Bytes: data}, nil
}

func (c Codec) encodeForm(ct ContentType, body Body) (*WireBody, error) {
	if q, ok := body.(GraphQL); ok {
		return &WireBody{Bytes: []byte(q)}, nil
	}

	tree, err := flattenTree(body)
	if err != nil {
		return nil, &EncodingError{ContentType: ct, Err: err}
	}
	if len(tree.files) == 0 {
		return &WireBody{
			Bytes:       []byte(encodePairs(tree.pairs)),
			ContentType: MIMEFormURLEncoded,
		}, nil
	}

	form := NewFormDataWithBoundary(c.boundaries())
	for _, p := range tree.pairs {
		form.AddField(p.Key, p.Value)
	}
	for _, leaf := range tree.files {
		opts := []PartOption{}
		if leaf.file.Filename != "" {
			opts = append(opts, WithFilename(leaf.file.Filename))
		}
		if leaf.file.MimeType != "" {
			opts = append(opts, WithMimeType(leaf.file.MimeType))
		}
		if err := form.AddFile(leaf.key, leaf.file.Path, opts...); err != nil {
			return nil, err
		}
	}
	data, err := form.Build()
	if err != nil {
		return nil, err
	}
	return &WireBody{Bytes: data, ContentType: form.ContentType()}, nil
}

func (c Codec) encodeGraphQL(body Body) (*WireBody, error) {
	q, ok := body.(GraphQL)
	if !ok {
		return nil, &EncodingError{
			ContentType: ContentTypeGraphQL,
			Err:         fmt.Errorf("body must be a GraphQL query string, got %T", body),
		}
	}
	return &WireBody{Bytes: []byte(q)}, nil
}

func (c Codec) encodeDefault(ct ContentType, body Body) (*WireBody, error) {
	if q, ok := body.(GraphQL); ok {
		return &WireBody{Bytes: []byte(q)}, nil
	}
	tree, err := flattenTree(body)
	if err != nil {
		return nil, &EncodingError{ContentType: ct, Err: err}
	}
	if len(tree.files) > 0 {
		return nil, &EncodingError{
			ContentType: ct,
			Err:         errors.New("file attachments need a form or multipart content type"),
		}
	}
	return &WireBody{Fields: tree.pairs}, nil
}

func (c Codec) boundaries() BoundaryGenerator {
	if c.Boundaries == nil {
		return UUIDBoundary{}
	}
	return c.Boundaries
}
