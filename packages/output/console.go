package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
	"github.com/abdul-hamid-achik/fetch/packages/metrics"
	"github.com/abdul-hamid-achik/fetch/packages/sse"
)

// ConsoleFormatter writes human-readable output. The body always goes to
// the writer unchanged apart from JSON pretty-printing; status and headers
// are only shown with WithHeaders or WithVerbose.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	headers bool
	noColor bool
	raw     bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

// WithHeaders prints the status line and response headers before the body.
func WithHeaders(h bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.headers = h
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithRaw disables JSON pretty-printing.
func WithRaw(raw bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.raw = raw
	}
}

func statusColor(status int) *color.Color {
	switch {
	case status >= 500:
		return color.New(color.FgRed, color.Bold)
	case status >= 400:
		return color.New(color.FgYellow, color.Bold)
	case status >= 300:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

func (f *ConsoleFormatter) FormatResponse(req RequestInfo, resp *fetchhttp.Response) {
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if f.verbose {
		fmt.Fprintf(f.writer, "%s %s\n", color.New(color.Bold).Sprint(req.Method), req.URL)
	}

	if f.headers || f.verbose {
		fmt.Fprintf(f.writer, "%s %s\n",
			statusColor(resp.StatusCode).Sprintf("%d", resp.StatusCode),
			faint(fmt.Sprintf("(%dms, attempt %d)", resp.DurationMs(), resp.Attempts)))

		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s: %s\n", cyan(name), resp.Headers[name])
		}
		fmt.Fprintln(f.writer)
	}

	if len(resp.Body) == 0 {
		return
	}
	body := resp.Body
	if resp.IsJSON() && !f.raw {
		body = pretty.Pretty(body)
		if !color.NoColor {
			body = pretty.Color(body, nil)
		}
	}
	_, _ = f.writer.Write(body)
	if body[len(body)-1] != '\n' {
		fmt.Fprintln(f.writer)
	}
}

func (f *ConsoleFormatter) FormatChunk(chunk fetchhttp.Chunk) {
	if f.verbose {
		faint := color.New(color.Faint).SprintFunc()
		fmt.Fprintf(f.writer, "%s\n", faint(fmt.Sprintf("[chunk %d, %d bytes]", chunk.Index(), chunk.Size())))
	}
	_, _ = f.writer.Write(chunk.Data())
}

func (f *ConsoleFormatter) FormatEvent(event sse.Event) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	eventType := event.Type
	if eventType == "" {
		eventType = "message"
	}
	fmt.Fprintf(f.writer, "%s", bold(eventType))
	if event.ID != "" {
		fmt.Fprintf(f.writer, " %s", faint("#"+event.ID))
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", event.Data)
}

func (f *ConsoleFormatter) FormatSummary(s *metrics.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Metrics"))
	fmt.Fprintf(f.writer, "  attempts: %d  retries: %d  failures: %s\n",
		s.Attempts, s.Retries, colorCount(s.Failures, green, red))
	fmt.Fprintf(f.writer, "  2xx: %d  3xx: %d  4xx: %d  5xx: %d\n",
		s.StatusClass(2), s.StatusClass(3), s.StatusClass(4), s.StatusClass(5))
	fmt.Fprintf(f.writer, "  latency p50: %s  p95: %s  p99: %s  max: %s\n", s.P50, s.P95, s.P99, s.Max)
}

func colorCount(n int64, ok, bad func(a ...interface{}) string) string {
	if n == 0 {
		return ok(n)
	}
	return bad(n)
}

func (f *ConsoleFormatter) FormatThresholds(results []metrics.ThresholdResult) {
	if len(results) == 0 {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", color.New(color.Bold).Sprint("Thresholds"))
	for _, r := range results {
		mark := green("✓")
		if !r.Passed {
			mark = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s (actual %s)\n", mark, r.Name, r.Expected, r.Actual)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("error:"), err)
}
