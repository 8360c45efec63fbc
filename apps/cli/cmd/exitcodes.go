package cmd

// Exit codes for the fetch CLI
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitHTTPError indicates a 4xx or 5xx response when --fail is set
	ExitHTTPError = 1

	// ExitValidationError indicates a --get path was missing or --schema failed
	ExitValidationError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitTimeout indicates the request timed out
	ExitTimeout = 5

	// ExitThresholdFailure indicates a --threshold was not met
	ExitThresholdFailure = 6

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
