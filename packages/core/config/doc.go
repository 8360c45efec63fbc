// Package config loads file-based client configuration.
//
// It provides functionality for:
//   - Loading configuration from .fetch.json or .fetch.yaml files
//   - Default configuration values
//   - Merging layered configs and converting them to client options
package config
