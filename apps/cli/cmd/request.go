package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
	"github.com/abdul-hamid-achik/fetch/packages/metrics"
	"github.com/abdul-hamid-achik/fetch/packages/output"
)

var requestCmd = &cobra.Command{
	Use:     "request <url>",
	Aliases: []string{"req"},
	Short:   "Send a request and print the response",
	Long: `Send a single HTTP request and print the response body.

Examples:
  fetch request https://api.example.com/users
  fetch request https://api.example.com/users -i -H "Accept: application/json"
  fetch request https://api.example.com/users --json name=ada --json admin:=true
  fetch request https://api.example.com/upload -F title=cat -F photo=@cat.png
  fetch request https://api.example.com/users -q page=2 --get "data.#.name"
  fetch request https://api.example.com/flaky --retries 3 --retry-delay 500ms --metrics
  fetch request https://api.example.com/users -X PUT -d @user.json --watch
  fetch request "{{baseUrl}}/users/{{uuid()}}" --env-file .env -H "Authorization: Bearer {{$API_TOKEN}}"`,
	Args: cobra.ExactArgs(1),
	RunE: requestCommand,
}

var (
	reqFlags requestFlags

	includeFlag    bool
	verboseFlag    bool
	noColorFlag    bool
	rawFlag        bool
	outputFlag     string
	outputFileFlag string
	getFlag        string
	schemaFlag     string
	failFlag       bool
	metricsFlag    bool
	thresholdFlag  string
	watchFlag      bool
	watchFileFlags []string
)

func addRequestFlags(cmd *cobra.Command, f *requestFlags) {
	cmd.Flags().StringVarP(&f.method, "method", "X", "", "HTTP method (default GET, or POST with a body)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Request header as \"Name: value\" (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Raw request body, or @file to read it from a file")
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.vars, "var", nil, "Variable for {{name}} placeholders as key=value (repeatable)")
	cmd.Flags().StringVar(&f.envFile, "env-file", getEnvString("FETCH_ENV_FILE", ""), "Load placeholder variables from a .env file (env: FETCH_ENV_FILE)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print the request line, status and chunk boundaries")
	cmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("FETCH_NO_COLOR", false), "Disable colored output (env: FETCH_NO_COLOR)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("FETCH_OUTPUT", "console"), "Output format: console, json (env: FETCH_OUTPUT)")
	cmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
}

func init() {
	addRequestFlags(requestCmd, &reqFlags)
	addOutputFlags(requestCmd)

	requestCmd.Flags().StringArrayVar(&reqFlags.json, "json", nil, "JSON field as key=value or key:=<json> (repeatable)")
	requestCmd.Flags().StringArrayVarP(&reqFlags.form, "form", "F", nil, "Form field as key=value or key=@file (repeatable)")

	requestCmd.Flags().BoolVarP(&includeFlag, "include", "i", false, "Print the status line and response headers")
	requestCmd.Flags().BoolVar(&rawFlag, "raw", false, "Do not pretty-print JSON bodies")
	requestCmd.Flags().StringVar(&getFlag, "get", "", "Print only the value at this JSON path (gjson syntax)")
	requestCmd.Flags().StringVar(&schemaFlag, "schema", "", "Validate the JSON body against a JSON Schema file")
	requestCmd.Flags().BoolVarP(&failFlag, "fail", "f", getEnvBool("FETCH_FAIL", false), "Exit non-zero on 4xx and 5xx responses (env: FETCH_FAIL)")
	requestCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print attempt and latency metrics")
	requestCmd.Flags().StringVar(&thresholdFlag, "threshold", "", "Pass/fail thresholds, e.g. \"p95<200ms,retries<=2\"")
	requestCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-send the request when the config or body files change")
	requestCmd.Flags().StringArrayVar(&watchFileFlags, "watch-file", nil, "Additional file to watch (repeatable)")
}

// openOutput returns the writer for command output and a close func.
func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if outputFileFlag == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(outputFileFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func newFormatter(w io.Writer, include bool) (output.Formatter, error) {
	return output.New(outputFlag, w,
		output.WithVerbose(verboseFlag),
		output.WithHeaders(include),
		output.WithNoColor(noColorFlag || outputFileFlag != ""),
		output.WithRaw(rawFlag),
	)
}

// exitCodeFor maps a request error to a process exit code.
func exitCodeFor(err error) int {
	switch {
	case fetchhttp.IsTimeout(err):
		return ExitTimeout
	case errors.Is(err, fetchhttp.ErrTransport):
		return ExitNetworkError
	default:
		return ExitUsageError
	}
}

func requestCommand(cmd *cobra.Command, args []string) error {
	url := args[0]

	w, closeOutput, err := openOutput(cmd)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	defer closeOutput()

	formatter, err := newFormatter(w, includeFlag)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	var thresholds metrics.Thresholds
	if thresholdFlag != "" {
		if thresholds, err = metrics.ParseThresholds(thresholdFlag); err != nil {
			return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("invalid thresholds: %w", err)}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	send := func() int {
		// The client is rebuilt so watch mode picks up config file edits.
		recorder := metrics.NewRecorder()
		client, err := clientOpts.newClient(fetchhttp.WithObserver(recorder))
		if err != nil {
			formatter.FormatError(err)
			return exitCodeOf(err)
		}

		req, err := reqFlags.build(url)
		if err != nil {
			formatter.FormatError(err)
			return ExitUsageError
		}

		code := sendRequest(ctx, w, client, req, formatter)

		if metricsFlag || thresholdFlag != "" {
			summary := recorder.Summary()
			formatter.FormatSummary(summary)
			results := thresholds.Evaluate(summary)
			formatter.FormatThresholds(results)
			for _, r := range results {
				if !r.Passed && code == ExitSuccess {
					code = ExitThresholdFailure
				}
			}
		}
		return code
	}

	code := send()
	if !watchFlag {
		return exitWith(code)
	}

	paths := append(reqFlags.files(), watchFileFlags...)
	if path := clientOpts.configPathInUse(); path != "" {
		paths = append(paths, path)
	}
	if schemaFlag != "" {
		paths = append(paths, schemaFlag)
	}
	if err := watchFiles(ctx, cmd.ErrOrStderr(), paths, func(string) { send() }); err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	return nil
}

func exitCodeOf(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsageError
}

// sendRequest performs req and reports the response through formatter.
func sendRequest(ctx context.Context, w io.Writer, client *fetchhttp.Client, req *fetchhttp.Request, formatter output.Formatter) int {
	info := output.RequestInfo{Method: req.Method, URL: req.URL}
	if target, err := req.BuildURL(); err == nil {
		info.URL = target
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		formatter.FormatError(err)
		return exitCodeFor(err)
	}

	if getFlag != "" {
		result := resp.Get(getFlag)
		if !result.Exists() {
			formatter.FormatError(fmt.Errorf("path %q not found in response", getFlag))
			return ExitValidationError
		}
		fmt.Fprintln(w, result.String())
	} else {
		formatter.FormatResponse(info, resp)
	}

	if schemaFlag != "" {
		if err := resp.ValidateSchemaFile(schemaFlag); err != nil {
			formatter.FormatError(err)
			return ExitValidationError
		}
	}

	if failFlag && resp.StatusCode >= 400 {
		return ExitHTTPError
	}
	return ExitSuccess
}
