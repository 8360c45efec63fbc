package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
	"github.com/abdul-hamid-achik/fetch/packages/metrics"
	"github.com/abdul-hamid-achik/fetch/packages/sse"
)

// JSONResponse is the document written for a completed request.
type JSONResponse struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	// Body is embedded as JSON when the response is JSON, as a string otherwise.
	Body     any     `json:"body,omitempty"`
	Duration float64 `json:"duration"` // milliseconds
	Attempts int     `json:"attempts"`
	Time     string  `json:"time"`
}

type JSONChunk struct {
	Index     int    `json:"index"`
	Size      int    `json:"size"`
	Data      string `json:"data"`
	Timestamp string `json:"timestamp"`
}

type JSONEvent struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type,omitempty"`
	Data  string `json:"data"`
	Retry int    `json:"retry,omitempty"`
}

type JSONSummary struct {
	Attempts    int64           `json:"attempts"`
	Retries     int64           `json:"retries"`
	Failures    int64           `json:"failures"`
	Timeouts    int64           `json:"timeouts"`
	StatusCodes map[int]int64 `json:"statusCodes,omitempty"`
	Latency     JSONLatency   `json:"latency"`
}

// JSONLatency values are in milliseconds.
type JSONLatency struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

type JSONThreshold struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type JSONError struct {
	Error string `json:"error"`
}

// JSONFormatter writes one JSON document per line.
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
}

type JSONOption func(*JSONFormatter)

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	f.encoder = json.NewEncoder(f.writer)
	return f
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (f *JSONFormatter) FormatResponse(req RequestInfo, resp *fetchhttp.Response) {
	out := JSONResponse{
		Method:     req.Method,
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Duration:   ms(resp.Duration),
		Attempts:   resp.Attempts,
		Time:       time.Now().UTC().Format(time.RFC3339),
	}
	if len(resp.Body) > 0 {
		if resp.IsJSON() && json.Valid(resp.Body) {
			out.Body = json.RawMessage(resp.Body)
		} else {
			out.Body = resp.Text()
		}
	}
	_ = f.encoder.Encode(out)
}

func (f *JSONFormatter) FormatChunk(chunk fetchhttp.Chunk) {
	_ = f.encoder.Encode(JSONChunk{
		Index:     chunk.Index(),
		Size:      chunk.Size(),
		Data:      chunk.String(),
		Timestamp: chunk.Timestamp().UTC().Format(time.RFC3339Nano),
	})
}

func (f *JSONFormatter) FormatEvent(event sse.Event) {
	_ = f.encoder.Encode(JSONEvent{
		ID:    event.ID,
		Type:  event.Type,
		Data:  event.Data,
		Retry: event.Retry,
	})
}

func (f *JSONFormatter) FormatSummary(s *metrics.Summary) {
	_ = f.encoder.Encode(JSONSummary{
		Attempts:    s.Attempts,
		Retries:     s.Retries,
		Failures:    s.Failures,
		Timeouts:    s.Timeouts,
		StatusCodes: s.StatusCodes,
		Latency: JSONLatency{
			P50:  ms(s.P50),
			P95:  ms(s.P95),
			P99:  ms(s.P99),
			Max:  ms(s.Max),
			Mean: ms(s.Mean),
		},
	})
}

func (f *JSONFormatter) FormatThresholds(results []metrics.ThresholdResult) {
	if len(results) == 0 {
		return
	}
	out := make([]JSONThreshold, len(results))
	for i, r := range results {
		out[i] = JSONThreshold{Name: r.Name, Passed: r.Passed, Expected: r.Expected, Actual: r.Actual}
	}
	_ = f.encoder.Encode(map[string]any{"thresholds": out})
}

func (f *JSONFormatter) FormatError(err error) {
	_ = f.encoder.Encode(JSONError{Error: err.Error()})
}
