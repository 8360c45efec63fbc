package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "fetch",
	Short: "HTTP requests from the command line, with retries and streaming.",
	Long: `fetch sends HTTP requests with JSON, form and multipart bodies,
retries failed attempts, streams response bodies chunk by chunk and
reads Server-Sent Events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitError carries a process exit code out of a command. A nil Err means
// the command already reported the problem.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func exitWith(code int) error {
	if code == ExitSuccess {
		return nil
	}
	return &ExitError{Code: code}
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "error: %v\n", err)
	return ExitUsageError
}

func init() {
	addClientFlags(rootCmd)

	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
