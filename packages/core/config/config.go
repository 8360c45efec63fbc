package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the client configuration. Durations are in
// milliseconds.
type Config struct {
	Timeout          int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ConnectTimeout   int               `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty"`
	Retries          int               `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelay       int               `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
	RetryStatusCodes []int             `json:"retryStatusCodes,omitempty" yaml:"retryStatusCodes,omitempty"`
	FollowRedirects  *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects     int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL      *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy            string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	UserAgent        string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Headers          map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	RateLimit        float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	RateBurst        int               `json:"rateBurst,omitempty" yaml:"rateBurst,omitempty"`
	LogLevel         string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// ConfigFilenames are searched in order by FindAndLoadConfig.
var ConfigFilenames = []string{
	".fetch.json",
	"fetch.json",
	".fetch.yaml",
	".fetch.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.ConnectTimeout > 0 {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.Retries > 0 {
		result.Retries = other.Retries
	}
	if other.RetryDelay > 0 {
		result.RetryDelay = other.RetryDelay
	}
	if len(other.RetryStatusCodes) > 0 {
		result.RetryStatusCodes = append([]int(nil), other.RetryStatusCodes...)
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.RateBurst > 0 {
		result.RateBurst = other.RateBurst
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}

	headers := make(map[string]string, len(c.Headers)+len(other.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	for k, v := range other.Headers {
		headers[k] = v
	}
	result.Headers = headers
	if len(headers) == 0 {
		result.Headers = nil
	}

	return &result
}

// SaveConfig writes the configuration to path, as YAML when the extension
// is .yaml or .yml and as indented JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
