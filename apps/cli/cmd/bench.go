package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
	"github.com/abdul-hamid-achik/fetch/packages/metrics"
)

var benchCmd = &cobra.Command{
	Use:   "bench <url>",
	Short: "Send a request repeatedly and report latency",
	Long: `Send the same request many times from concurrent workers and report
attempt counts, status classes and latency percentiles.

Examples:
  fetch bench https://api.example.com/health -n 500 -c 20
  fetch bench https://api.example.com/health --duration 30s --rate 50
  fetch bench https://api.example.com/users -n 200 --threshold "p95<200ms,failures<1%"`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

var (
	benchFlags requestFlags

	benchRequestsFlag    int
	benchConcurrencyFlag int
	benchDurationFlag    string
	benchThresholdFlag   string
)

func init() {
	addRequestFlags(benchCmd, &benchFlags)
	addOutputFlags(benchCmd)

	benchCmd.Flags().IntVarP(&benchRequestsFlag, "requests", "n", 100, "Number of requests to send")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", getEnvInt("FETCH_CONCURRENCY", 10), "Number of concurrent workers (env: FETCH_CONCURRENCY)")
	benchCmd.Flags().StringVar(&benchDurationFlag, "duration", "", "Send requests until this much time has passed, ignoring --requests")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds, e.g. \"p95<200ms,failures<1%\"")
}

// benchConfig is a resolved bench run.
type benchConfig struct {
	Requests    int
	Concurrency int
	Duration    time.Duration
}

// runBench sends requests from cfg.Concurrency workers until cfg.Requests
// have been sent, cfg.Duration has passed or ctx is done. newRequest is
// called once per request. It returns the number of requests started.
func runBench(ctx context.Context, client *fetchhttp.Client, cfg benchConfig, newRequest func() *fetchhttp.Request) int {
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				// Errors are counted by the client's observer.
				_, _ = client.Do(ctx, newRequest())
			}
		}()
	}

	sent := 0
loop:
	for cfg.Duration > 0 || sent < cfg.Requests {
		select {
		case <-ctx.Done():
			break loop
		case jobs <- struct{}{}:
			sent++
		}
	}
	close(jobs)
	wg.Wait()

	return sent
}

func benchCommand(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg := benchConfig{
		Requests:    benchRequestsFlag,
		Concurrency: benchConcurrencyFlag,
	}
	if benchDurationFlag != "" {
		d, err := time.ParseDuration(benchDurationFlag)
		if err != nil {
			return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("invalid duration: %w", err)}
		}
		cfg.Duration = d
	}

	var thresholds metrics.Thresholds
	if benchThresholdFlag != "" {
		var err error
		if thresholds, err = metrics.ParseThresholds(benchThresholdFlag); err != nil {
			return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("invalid thresholds: %w", err)}
		}
	}

	// Validate the request once up front so bad flags fail fast.
	if _, err := benchFlags.build(url); err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	w, closeOutput, err := openOutput(cmd)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	defer closeOutput()

	formatter, err := newFormatter(w, false)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	recorder := metrics.NewRecorder()
	client, err := clientOpts.newClient(fetchhttp.WithObserver(recorder))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runBench(ctx, client, cfg, func() *fetchhttp.Request {
		req, _ := benchFlags.build(url)
		return req
	})

	summary := recorder.Summary()
	formatter.FormatSummary(summary)
	recorder.LogSummary(client.Config().Logger)

	results := thresholds.Evaluate(summary)
	formatter.FormatThresholds(results)
	for _, r := range results {
		if !r.Passed {
			return exitWith(ExitThresholdFailure)
		}
	}
	return nil
}
