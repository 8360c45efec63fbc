// Package http is a fetch-style HTTP client.
//
// It covers the request side and the response pipeline:
//   - Content-type driven body encoding (JSON, URL-encoded, multipart, GraphQL)
//   - Multipart form assembly with file attachments
//   - Buffered or chunk-streamed response bodies
//   - Retry on configured status codes with a constant delay
//   - Configurable timeouts, redirects, user agent and rate limiting
//
// Socket, TLS and redirect mechanics are left to a Transport; NetTransport
// implements it on top of net/http.
package http
