package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/rs/zerolog"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// Latencies are tracked in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

var _ fetchhttp.Observer = (*Recorder)(nil)

// Recorder aggregates attempt outcomes. It is safe for concurrent use.
type Recorder struct {
	mu sync.RWMutex

	attempts  atomic.Int64
	responses atomic.Int64
	failures  atomic.Int64
	timeouts  atomic.Int64
	retries   atomic.Int64

	histogram *hdrhistogram.Histogram
	statuses  map[int]int64
	methods   map[string]*methodStats

	startTime time.Time
}

type methodStats struct {
	attempts  atomic.Int64
	failures  atomic.Int64
	retries   atomic.Int64
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

func NewRecorder() *Recorder {
	return &Recorder{
		histogram: newHistogram(),
		statuses:  make(map[int]int64),
		methods:   make(map[string]*methodStats),
		startTime: time.Now(),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs)
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

// ObserveAttempt records one request/response cycle. A non-nil err counts
// as a failure and its latency is still recorded.
func (r *Recorder) ObserveAttempt(method string, status int, duration time.Duration, err error) {
	r.attempts.Add(1)
	ms := r.method(method)
	ms.attempts.Add(1)

	if err != nil {
		r.failures.Add(1)
		ms.failures.Add(1)
		if fetchhttp.IsTimeout(err) {
			r.timeouts.Add(1)
		}
	} else {
		r.responses.Add(1)
	}

	latency := clampLatency(duration)

	r.mu.Lock()
	_ = r.histogram.RecordValue(latency)
	if err == nil {
		r.statuses[status]++
	}
	r.mu.Unlock()

	ms.mu.Lock()
	_ = ms.histogram.RecordValue(latency)
	ms.mu.Unlock()
}

// ObserveRetry records that attempt ended with a retryable status and
// another attempt will follow.
func (r *Recorder) ObserveRetry(method string, attempt int, status int) {
	r.retries.Add(1)
	r.method(method).retries.Add(1)
}

func (r *Recorder) method(name string) *methodStats {
	r.mu.RLock()
	ms, ok := r.methods[name]
	r.mu.RUnlock()
	if ok {
		return ms
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ms, ok = r.methods[name]; ok {
		return ms
	}
	ms = &methodStats{histogram: newHistogram()}
	r.methods[name] = ms
	return ms
}

// Reset clears all recorded data and restarts the clock.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts.Store(0)
	r.responses.Store(0)
	r.failures.Store(0)
	r.timeouts.Store(0)
	r.retries.Store(0)
	r.histogram.Reset()
	r.statuses = make(map[int]int64)
	r.methods = make(map[string]*methodStats)
	r.startTime = time.Now()
}

// Summary is a point-in-time view of a Recorder.
type Summary struct {
	Elapsed   time.Duration
	Attempts  int64
	Responses int64
	Failures  int64
	Timeouts  int64
	Retries   int64

	AttemptsPerSecond float64
	FailureRate       float64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration

	// StatusCodes counts responses by status code.
	StatusCodes map[int]int64
	Methods     map[string]*MethodSummary
}

type MethodSummary struct {
	Method   string
	Attempts int64
	Failures int64
	Retries  int64
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	Mean     time.Duration
}

// StatusClass sums the responses whose status is in the given hundred,
// e.g. StatusClass(5) for 5xx.
func (s *Summary) StatusClass(class int) int64 {
	var n int64
	for code, count := range s.StatusCodes {
		if code/100 == class {
			n += count
		}
	}
	return n
}

func (r *Recorder) Summary() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elapsed := time.Since(r.startTime)
	attempts := r.attempts.Load()
	failures := r.failures.Load()

	perSecond := float64(0)
	if elapsed.Seconds() > 0 {
		perSecond = float64(attempts) / elapsed.Seconds()
	}
	failureRate := float64(0)
	if attempts > 0 {
		failureRate = float64(failures) / float64(attempts)
	}

	summary := &Summary{
		Elapsed:           elapsed,
		Attempts:          attempts,
		Responses:         r.responses.Load(),
		Failures:          failures,
		Timeouts:          r.timeouts.Load(),
		Retries:           r.retries.Load(),
		AttemptsPerSecond: perSecond,
		FailureRate:       failureRate,
		P50:               micros(r.histogram.ValueAtQuantile(50)),
		P95:               micros(r.histogram.ValueAtQuantile(95)),
		P99:               micros(r.histogram.ValueAtQuantile(99)),
		Min:               micros(r.histogram.Min()),
		Max:               micros(r.histogram.Max()),
		Mean:              micros(int64(r.histogram.Mean())),
		StatusCodes:       make(map[int]int64, len(r.statuses)),
		Methods:           make(map[string]*MethodSummary, len(r.methods)),
	}

	for code, n := range r.statuses {
		summary.StatusCodes[code] = n
	}

	for name, ms := range r.methods {
		ms.mu.Lock()
		summary.Methods[name] = &MethodSummary{
			Method:   name,
			Attempts: ms.attempts.Load(),
			Failures: ms.failures.Load(),
			Retries:  ms.retries.Load(),
			P50:      micros(ms.histogram.ValueAtQuantile(50)),
			P95:      micros(ms.histogram.ValueAtQuantile(95)),
			P99:      micros(ms.histogram.ValueAtQuantile(99)),
			Mean:     micros(int64(ms.histogram.Mean())),
		}
		ms.mu.Unlock()
	}

	return summary
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// LogSummary writes the current summary as a single info event.
func (r *Recorder) LogSummary(logger zerolog.Logger) {
	s := r.Summary()
	logger.Info().
		Int64("attempts", s.Attempts).
		Int64("failures", s.Failures).
		Int64("timeouts", s.Timeouts).
		Int64("retries", s.Retries).
		Int64("2xx", s.StatusClass(2)).
		Int64("4xx", s.StatusClass(4)).
		Int64("5xx", s.StatusClass(5)).
		Dur("p50", s.P50).
		Dur("p95", s.P95).
		Dur("p99", s.P99).
		Dur("max", s.Max).
		Msg("fetch metrics")
}
