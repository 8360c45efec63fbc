package http

import "strings"

// HeaderParser accumulates raw response header lines for one in-flight
// request.
type HeaderParser struct {
	headers map[string]string
}

func NewHeaderParser() *HeaderParser {
	return &HeaderParser{headers: make(map[string]string)}
}

// OnHeaderLine records a "Name: value" line. The name is lowercased and both
// sides trimmed; lines without a colon, such as the status line, are ignored.
// A repeated name keeps the last value.
func (p *HeaderParser) OnHeaderLine(line string) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	p.headers[name] = strings.TrimSpace(value)
}

// Finish returns the collected headers.
func (p *HeaderParser) Finish() map[string]string {
	return p.headers
}
