package http

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BoundaryGenerator produces multipart boundary tokens.
type BoundaryGenerator interface {
	Boundary() string
}

// BoundaryFunc adapts a function to BoundaryGenerator.
type BoundaryFunc func() string

func (f BoundaryFunc) Boundary() string { return f() }

// UUIDBoundary generates WebKit-style boundaries from a random UUID.
type UUIDBoundary struct{}

func (UUIDBoundary) Boundary() string {
	return "----FetchFormBoundary" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FixedBoundary always returns the same token.
func FixedBoundary(token string) BoundaryGenerator {
	return BoundaryFunc(func() string { return token })
}

// Field is a plain text part.
type Field struct {
	Name    string
	Value   string
	Headers []HeaderField
}

// FileEntry is a file part. A part with a Path is read from disk at build
// time; a part without one is inline and sends Content, which may be empty.
type FileEntry struct {
	Name     string
	Filename string
	MimeType string
	Headers  []HeaderField
	Path     string
	Content  []byte
}

// PartOption customises a field or file part.
type PartOption func(*partConfig)

type partConfig struct {
	filename string
	mimeType string
	headers  []HeaderField
}

// WithFilename overrides the filename reported for a file part.
func WithFilename(name string) PartOption {
	return func(p *partConfig) {
		p.filename = name
	}
}

// WithMimeType overrides the detected content type of a file part.
func WithMimeType(mimeType string) PartOption {
	return func(p *partConfig) {
		p.mimeType = mimeType
	}
}

// WithPartHeader adds an extra header line to a part.
func WithPartHeader(name, value string) PartOption {
	return func(p *partConfig) {
		p.headers = append(p.headers, HeaderField{Name: name, Value: value})
	}
}

func applyPartOptions(opts []PartOption) partConfig {
	var cfg partConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FormData is a form body built incrementally. It encodes as
// application/x-www-form-urlencoded until a file is attached and as
// multipart/form-data afterwards.
type FormData struct {
	boundary string
	fields   []Field
	files    []FileEntry
}

// NewFormData returns an empty form with a fresh random boundary.
func NewFormData() *FormData {
	return NewFormDataWithBoundary(UUIDBoundary{})
}

// NewFormDataWithBoundary returns an empty form whose boundary comes from gen.
func NewFormDataWithBoundary(gen BoundaryGenerator) *FormData {
	if gen == nil {
		gen = UUIDBoundary{}
	}
	return &FormData{boundary: gen.Boundary()}
}

// SetBoundary replaces the boundary token.
func (f *FormData) SetBoundary(boundary string) {
	f.boundary = boundary
}

// Boundary returns the current boundary token.
func (f *FormData) Boundary() string {
	return f.boundary
}

// AddField appends a text field.
func (f *FormData) AddField(name, value string, opts ...PartOption) *FormData {
	cfg := applyPartOptions(opts)
	f.fields = append(f.fields, Field{
		Name:    name,
		Value:   value,
		Headers: cfg.headers,
	})
	return f
}

// AddFile attaches the file at path. The file must exist and be readable now;
// its bytes are read again when the body is built.
func (f *FormData) AddFile(name, path string, opts ...PartOption) error {
	head, err := sniffFile(path)
	if err != nil {
		return &FileAccessError{Path: path, Err: err}
	}

	cfg := applyPartOptions(opts)
	if cfg.filename == "" {
		cfg.filename = filepath.Base(path)
	}
	if cfg.mimeType == "" {
		cfg.mimeType = DetectMimeType(path, head)
	}

	f.files = append(f.files, FileEntry{
		Name:     name,
		Filename: cfg.filename,
		MimeType: cfg.mimeType,
		Headers:  cfg.headers,
		Path:     path,
	})
	return nil
}

// AddContent attaches inline bytes as a file part.
func (f *FormData) AddContent(name string, content []byte, filename string, opts ...PartOption) *FormData {
	cfg := applyPartOptions(opts)
	if cfg.mimeType == "" {
		cfg.mimeType = MIMEOctetStream
	}
	if cfg.filename != "" {
		filename = cfg.filename
	}
	f.files = append(f.files, FileEntry{
		Name:     name,
		Filename: filename,
		MimeType: cfg.mimeType,
		Headers:  cfg.headers,
		Content:  content,
	})
	return f
}

// Fields returns a copy of the text fields in declaration order.
func (f *FormData) Fields() []Field {
	return append([]Field(nil), f.fields...)
}

// Files returns a copy of the file parts in declaration order.
func (f *FormData) Files() []FileEntry {
	return append([]FileEntry(nil), f.files...)
}

// HasFiles reports whether any file part was added.
func (f *FormData) HasFiles() bool {
	return len(f.files) > 0
}

// ContentType derives the content type from the current state, so it must be
// read at send time.
func (f *FormData) ContentType() string {
	if len(f.files) == 0 {
		return MIMEFormURLEncoded
	}
	return MIMEMultipartForm + "; boundary=" + f.boundary
}

// Build renders the multipart body: every field, then every file, then the
// closing boundary. It does not mutate the form.
func (f *FormData) Build() ([]byte, error) {
	var buf bytes.Buffer

	for _, field := range f.fields {
		buf.WriteString("--" + f.boundary + "\r\n")
		buf.WriteString(`Content-Disposition: form-data; name="` + field.Name + "\"\r\n")
		writePartHeaders(&buf, field.Headers)
		buf.WriteString("\r\n")
		buf.WriteString(field.Value + "\r\n")
	}

	for _, file := range f.files {
		buf.WriteString("--" + f.boundary + "\r\n")
		buf.WriteString(`Content-Disposition: form-data; name="` + file.Name + `"; filename="` + file.Filename + "\"\r\n")
		buf.WriteString("Content-Type: " + file.MimeType + "\r\n")
		writePartHeaders(&buf, file.Headers)
		buf.WriteString("\r\n")

		if file.Path == "" {
			buf.Write(file.Content)
		} else {
			data, err := os.ReadFile(file.Path)
			if err != nil {
				return nil, &FileAccessError{Path: file.Path, Err: err}
			}
			buf.Write(data)
		}
		buf.WriteString("\r\n")
	}

	buf.WriteString("--" + f.boundary + "--\r\n")
	return buf.Bytes(), nil
}

// Payload returns the bytes to transmit together with their content type.
// Without files the fields are URL-encoded to match the reported type.
func (f *FormData) Payload() ([]byte, string, error) {
	if len(f.files) == 0 {
		pairs := make([]KeyValue, 0, len(f.fields))
		for _, field := range f.fields {
			pairs = append(pairs, KeyValue{Key: field.Name, Value: field.Value})
		}
		return []byte(encodePairs(pairs)), MIMEFormURLEncoded, nil
	}
	body, err := f.Build()
	if err != nil {
		return nil, "", err
	}
	return body, f.ContentType(), nil
}

func writePartHeaders(buf *bytes.Buffer, headers []HeaderField) {
	for _, h := range headers {
		buf.WriteString(h.Name + ": " + h.Value + "\r\n")
	}
}

// sniffFile checks that path is a readable regular file and returns up to
// 512 leading bytes for content sniffing.
func sniffFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

// DetectMimeType guesses a media type from the file extension, then from the
// leading bytes, falling back to application/octet-stream.
func DetectMimeType(path string, head []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	if len(head) > 0 {
		if mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head)); err == nil {
			return mediaType
		}
	}
	return MIMEOctetStream
}
