package output

import (
	"fmt"
	"io"
	"strings"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
	"github.com/abdul-hamid-achik/fetch/packages/metrics"
	"github.com/abdul-hamid-achik/fetch/packages/sse"
)

// RequestInfo identifies the request a response belongs to.
type RequestInfo struct {
	Method string
	URL    string
}

// Formatter renders everything a fetch command can produce.
type Formatter interface {
	FormatResponse(req RequestInfo, resp *fetchhttp.Response)
	FormatChunk(chunk fetchhttp.Chunk)
	FormatEvent(event sse.Event)
	FormatSummary(summary *metrics.Summary)
	FormatThresholds(results []metrics.ThresholdResult)
	FormatError(err error)
}

// New returns the formatter for format, "console" or "json".
func New(format string, w io.Writer, opts ...ConsoleOption) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(append([]ConsoleOption{WithWriter(w)}, opts...)...), nil
	case "json":
		return NewJSONFormatter(WithJSONWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}
