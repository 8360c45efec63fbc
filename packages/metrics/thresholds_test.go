package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThresholds(t *testing.T) {
	tests := []struct {
		input    string
		expected Thresholds
		wantErr  bool
	}{
		{"", Thresholds{}, false},
		{"p95<200ms", Thresholds{P95: 200 * time.Millisecond}, false},
		{"p50<=50ms, p99<1s", Thresholds{P50: 50 * time.Millisecond, P99: time.Second}, false},
		{"max<2s", Thresholds{MaxLatency: 2 * time.Second}, false},
		{"failures<1%", Thresholds{FailureRate: 0.01}, false},
		{"failures<0.05", Thresholds{FailureRate: 0.05}, false},
		{"retries<=3", Thresholds{MaxRetries: 3}, false},
		{"p95>200ms", Thresholds{}, true},
		{"p95<fast", Thresholds{}, true},
		{"latency<1s", Thresholds{}, true},
		{"retries<many", Thresholds{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseThresholds(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.P50, got.P50)
			assert.Equal(t, tt.expected.P95, got.P95)
			assert.Equal(t, tt.expected.P99, got.P99)
			assert.Equal(t, tt.expected.MaxLatency, got.MaxLatency)
			assert.InDelta(t, tt.expected.FailureRate, got.FailureRate, 0.0001)
			assert.Equal(t, tt.expected.MaxRetries, got.MaxRetries)
		})
	}
}

func TestThresholdsEvaluate(t *testing.T) {
	s := &Summary{
		P95:         150 * time.Millisecond,
		Max:         3 * time.Second,
		FailureRate: 0.02,
		Retries:     1,
	}
	th := Thresholds{
		P95:         200 * time.Millisecond,
		MaxLatency:  time.Second,
		FailureRate: 0.01,
		MaxRetries:  2,
	}

	results := th.Evaluate(s)
	require.Len(t, results, 4)

	byName := make(map[string]ThresholdResult)
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.True(t, byName["p95"].Passed)
	assert.False(t, byName["max latency"].Passed)
	assert.False(t, byName["failure rate"].Passed)
	assert.Equal(t, "2%", byName["failure rate"].Actual)
	assert.True(t, byName["retries"].Passed)

	assert.Empty(t, Thresholds{}.Evaluate(s))
}
