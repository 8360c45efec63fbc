// Package output renders responses, streamed chunks, events and metrics for
// the command line.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: One JSON document per line for scripting
package output
