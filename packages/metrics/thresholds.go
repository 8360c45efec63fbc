package metrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Thresholds are upper bounds checked against a Summary. Zero fields are
// not checked.
type Thresholds struct {
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	MaxLatency  time.Duration
	FailureRate float64 // 0.0 - 1.0
	MaxRetries  int64
}

type ThresholdResult struct {
	Name     string
	Passed   bool
	Expected string
	Actual   string
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*(<=?)\s*(.+)$`)

// ParseThresholds parses a list such as "p95<200ms,failures<1%,retries<=3".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := parseThreshold(part, &t); err != nil {
			return t, err
		}
	}
	return t, nil
}

func parseThreshold(part string, t *Thresholds) error {
	matches := thresholdPattern.FindStringSubmatch(part)
	if len(matches) != 4 {
		return fmt.Errorf("invalid threshold format: %s", part)
	}
	metric, value := strings.ToLower(matches[1]), strings.TrimSpace(matches[3])

	switch metric {
	case "p50", "p95", "p99", "max":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", metric, value)
		}
		switch metric {
		case "p50":
			t.P50 = d
		case "p95":
			t.P95 = d
		case "p99":
			t.P99 = d
		default:
			t.MaxLatency = d
		}
	case "failures", "failurerate":
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid failure rate: %s", value)
		}
		if strings.HasSuffix(value, "%") {
			f /= 100
		}
		t.FailureRate = f
	case "retries":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid retry count: %s", value)
		}
		t.MaxRetries = n
	default:
		return fmt.Errorf("unknown threshold metric: %s", metric)
	}
	return nil
}

// Evaluate checks s against t and returns one result per configured bound.
func (t Thresholds) Evaluate(s *Summary) []ThresholdResult {
	var results []ThresholdResult

	latency := func(name string, limit, actual time.Duration) {
		if limit <= 0 {
			return
		}
		results = append(results, ThresholdResult{
			Name:     name,
			Passed:   actual <= limit,
			Expected: "<= " + limit.String(),
			Actual:   actual.String(),
		})
	}
	latency("p50", t.P50, s.P50)
	latency("p95", t.P95, s.P95)
	latency("p99", t.P99, s.P99)
	latency("max latency", t.MaxLatency, s.Max)

	if t.FailureRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "failure rate",
			Passed:   s.FailureRate <= t.FailureRate,
			Expected: "<= " + formatPercent(t.FailureRate),
			Actual:   formatPercent(s.FailureRate),
		})
	}
	if t.MaxRetries > 0 {
		results = append(results, ThresholdResult{
			Name:     "retries",
			Passed:   s.Retries <= t.MaxRetries,
			Expected: "<= " + strconv.FormatInt(t.MaxRetries, 10),
			Actual:   strconv.FormatInt(s.Retries, 10),
		})
	}
	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
