package http

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
	ErrEncoding          = errors.New("body encoding failed")
	ErrFileAccess        = errors.New("file access failed")
	ErrTransport         = errors.New("transport failed")
)

// UnsupportedMethodError is returned when a method is not one of the nine
// recognized verbs. It is raised before any network activity.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported HTTP method: %q", e.Method)
}

func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// EncodingError is returned when a body cannot be serialized for the
// declared content type.
type EncodingError struct {
	ContentType ContentType
	Err         error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s body: %v", e.ContentType, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// FileAccessError is returned when a multipart attachment path is missing or
// unreadable.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file doesn't exist or isn't readable: %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

func (e *FileAccessError) Is(target error) bool {
	return target == ErrFileAccess
}

// TransportError wraps a low-level connection, send or receive failure.
// It never implies that an HTTP response was parsed.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
