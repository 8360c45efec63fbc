package http

import (
	"mime"
	"strings"
)

// Content type strings understood by the body codec.
const (
	MIMEJSON           = "application/json"
	MIMEFormURLEncoded = "application/x-www-form-urlencoded"
	MIMEMultipartForm  = "multipart/form-data"
	MIMEGraphQL        = "application/graphql"
	MIMEOctetStream    = "application/octet-stream"
)

// ContentType selects how a request body is encoded.
type ContentType int

const (
	// ContentTypeNone means no content-type header was set.
	ContentTypeNone ContentType = iota
	ContentTypeJSON
	ContentTypeForm
	ContentTypeMultipart
	ContentTypeGraphQL
	// ContentTypeRaw is any content type the codec does not recognize.
	ContentTypeRaw
)

// ParseContentType maps a content-type header value onto the codec's closed
// set. Parameters such as charset are ignored.
func ParseContentType(header string) ContentType {
	header = strings.TrimSpace(header)
	if header == "" {
		return ContentTypeNone
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = strings.ToLower(header)
	}
	switch mediaType {
	case MIMEJSON:
		return ContentTypeJSON
	case MIMEFormURLEncoded:
		return ContentTypeForm
	case MIMEMultipartForm:
		return ContentTypeMultipart
	case MIMEGraphQL:
		return ContentTypeGraphQL
	default:
		return ContentTypeRaw
	}
}

func (c ContentType) String() string {
	switch c {
	case ContentTypeNone:
		return "none"
	case ContentTypeJSON:
		return MIMEJSON
	case ContentTypeForm:
		return MIMEFormURLEncoded
	case ContentTypeMultipart:
		return MIMEMultipartForm
	case ContentTypeGraphQL:
		return MIMEGraphQL
	default:
		return "raw"
	}
}
