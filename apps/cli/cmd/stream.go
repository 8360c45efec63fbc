package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
	"github.com/abdul-hamid-achik/fetch/packages/output"
	"github.com/abdul-hamid-achik/fetch/packages/sse"
)

var streamCmd = &cobra.Command{
	Use:   "stream <url>",
	Short: "Print a response body as it arrives",
	Long: `Print a response body chunk by chunk as it arrives, or decode it as
Server-Sent Events with --sse.

Examples:
  fetch stream https://example.com/large.ndjson
  fetch stream https://example.com/logs -v
  fetch stream https://example.com/events --sse --max-events 10
  fetch stream https://example.com/events --sse --last-event-id 42 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: streamCommand,
}

var (
	streamFlags requestFlags

	sseFlag         bool
	maxEventsFlag   int
	lastEventIDFlag string
)

func init() {
	addRequestFlags(streamCmd, &streamFlags)
	addOutputFlags(streamCmd)

	streamCmd.Flags().BoolVar(&sseFlag, "sse", false, "Decode the body as Server-Sent Events")
	streamCmd.Flags().IntVar(&maxEventsFlag, "max-events", 0, "Stop after this many events (0 for no limit)")
	streamCmd.Flags().StringVar(&lastEventIDFlag, "last-event-id", "", "Resume an event stream from this id")
}

func streamCommand(cmd *cobra.Command, args []string) error {
	url := args[0]

	w, closeOutput, err := openOutput(cmd)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	defer closeOutput()

	formatter, err := newFormatter(w, false)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	client, err := clientOpts.newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code int
	if sseFlag {
		code = streamEvents(ctx, client, url, formatter)
	} else {
		code = streamChunks(ctx, client, url, formatter)
	}
	return exitWith(code)
}

func streamChunks(ctx context.Context, client *fetchhttp.Client, url string, formatter output.Formatter) int {
	req, err := streamFlags.build(url)
	if err != nil {
		formatter.FormatError(err)
		return ExitUsageError
	}
	req.SetChunkFunc(formatter.FormatChunk)

	resp, err := client.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ExitSuccess
		}
		formatter.FormatError(err)
		return exitCodeFor(err)
	}
	if verboseFlag {
		formatter.FormatResponse(output.RequestInfo{Method: req.Method, URL: url}, resp)
	}
	return ExitSuccess
}

func streamEvents(ctx context.Context, client *fetchhttp.Client, url string, formatter output.Formatter) int {
	f, url, _, err := streamFlags.expand(url)
	if err != nil {
		formatter.FormatError(err)
		return ExitUsageError
	}

	headers := make(map[string]string, len(f.headers))
	for _, h := range f.headers {
		name, value, err := splitHeader(h)
		if err != nil {
			formatter.FormatError(err)
			return ExitUsageError
		}
		headers[name] = value
	}

	// The client's own timeout bounds the stream.
	sseClient := sse.NewClient(url,
		sse.WithFetchClient(client),
		sse.WithHeaders(headers),
		sse.WithTimeout(client.Config().Timeout),
		sse.WithLastEventID(lastEventIDFlag),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	count := 0
	err = sseClient.StreamWithHandler(ctx, func(event sse.Event) {
		if maxEventsFlag > 0 && count >= maxEventsFlag {
			return
		}
		formatter.FormatEvent(event)
		count++
		if maxEventsFlag > 0 && count >= maxEventsFlag {
			cancel()
		}
	})

	switch {
	case err == nil, maxEventsFlag > 0 && count >= maxEventsFlag:
		return ExitSuccess
	case ctx.Err() != nil:
		return ExitSuccess
	case errors.Is(err, sse.ErrUnexpectedResponse):
		formatter.FormatError(err)
		return ExitHTTPError
	default:
		formatter.FormatError(fmt.Errorf("stream failed: %w", err))
		return exitCodeFor(err)
	}
}
