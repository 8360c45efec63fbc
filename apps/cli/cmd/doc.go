// Package cmd implements the fetch CLI commands using Cobra.
//
// Available commands:
//   - request: Send a single request and print the response
//   - stream: Print a response body chunk by chunk, or as Server-Sent Events
//   - bench: Send a request repeatedly and report latency percentiles
//   - init: Write a starter .fetch.yaml
//   - version: Show fetch version information
//
// Client flags such as --timeout, --retries and --proxy are shared by every
// command and are layered over the config file.
package cmd
