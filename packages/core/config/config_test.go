package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 15000, cfg.Timeout)
	assert.Equal(t, 10000, cfg.ConnectTimeout)
	assert.Equal(t, 1000, cfg.RetryDelay)
	assert.Equal(t, []int{500, 503}, cfg.RetryStatusCodes)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.True(t, cfg.IsDefault())

	cfg.Retries = 2
	assert.False(t, cfg.IsDefault())
}

func TestBoolGettersDefaultWhenUnset(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())

	cfg.FollowRedirects = BoolPtr(false)
	assert.False(t, cfg.GetFollowRedirects())
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"timeout": 5000,
		"retries": 3,
		"followRedirects": false,
		"headers": {"X-Api-Key": "k"}
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retries)
	assert.False(t, cfg.GetFollowRedirects())
	assert.Equal(t, "k", cfg.Headers["X-Api-Key"])
	assert.Equal(t, 1000, cfg.RetryDelay)
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".fetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeout: 2500
retryStatusCodes: [429, 503]
validateSSL: false
userAgent: tester/2
rateLimit: 5.5
rateBurst: 2
`), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 2500, cfg.Timeout)
	assert.Equal(t, []int{429, 503}, cfg.RetryStatusCodes)
	assert.False(t, cfg.GetValidateSSL())
	assert.Equal(t, "tester/2", cfg.UserAgent)
	assert.InDelta(t, 5.5, cfg.RateLimit, 0.001)
	assert.Equal(t, 2, cfg.RateBurst)
}

func TestFindAndLoadConfigPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fetch.json"), []byte(`{"timeout": 1}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fetch.yaml"), []byte("timeout: 2\n"), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Timeout)
}

func TestFindAndLoadConfigDefaults(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1", "B": "1"}

	override := &Config{
		Timeout:         100,
		FollowRedirects: BoolPtr(false),
		Headers:         map[string]string{"B": "2"},
		LogLevel:        "debug",
	}

	merged := base.Merge(override)
	assert.Equal(t, 100, merged.Timeout)
	assert.False(t, merged.GetFollowRedirects())
	assert.True(t, merged.GetValidateSSL())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, "debug", merged.LogLevel)

	assert.Equal(t, "1", base.Headers["B"])
	assert.True(t, base.GetFollowRedirects())
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Retries = 4
	cfg.Headers = map[string]string{"Accept": "application/json"}

	for _, name := range []string{"out.json", "out.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 4, loaded.Retries)
		assert.Equal(t, "application/json", loaded.Headers["Accept"])
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{LogLevel: "warn"}
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = (&Config{LogLevel: "loud"}).Logger(&buf)
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig().Merge(&Config{
		Timeout:          2000,
		Retries:          3,
		RetryDelay:       50,
		RetryStatusCodes: []int{429},
		FollowRedirects:  BoolPtr(false),
		MaxRedirects:     2,
		UserAgent:        "cfg/1",
		Headers:          map[string]string{"X-Env": "test"},
		RateLimit:        10,
		RateBurst:        3,
	})

	client, err := cfg.NewClient()
	require.NoError(t, err)

	got := client.Config()
	assert.Equal(t, 2*time.Second, got.Timeout)
	assert.Equal(t, 10*time.Second, got.ConnectTimeout)
	assert.Equal(t, 3, got.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, got.RetryDelay)
	assert.Equal(t, []int{429}, got.RetryStatusCodes)
	assert.False(t, got.FollowRedirects)
	assert.Equal(t, 2, got.MaxRedirects)
	assert.Equal(t, "cfg/1", got.UserAgent)
	assert.Equal(t, "test", got.Headers.Get("x-env"))
	assert.InDelta(t, 10.0, float64(got.RateLimit), 0.001)
	assert.Equal(t, 3, got.RateBurst)
}

func TestClientOptionsTransport(t *testing.T) {
	client, err := DefaultConfig().NewClient()
	require.NoError(t, err)
	assert.IsType(t, &fetchhttp.NetTransport{}, client.Config().Transport)

	cfg := DefaultConfig()
	cfg.ValidateSSL = BoolPtr(false)
	cfg.Proxy = "http://proxy.local:3128"
	client, err = cfg.NewClient()
	require.NoError(t, err)
	assert.IsType(t, &fetchhttp.NetTransport{}, client.Config().Transport)

	cfg.Proxy = "://bad"
	_, err = cfg.ClientOptions()
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.LogLevel = "nope"
	_, err = cfg.ClientOptions()
	assert.Error(t, err)
}

func TestNewClientExtraOptionsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UserAgent = "from-file"

	client, err := cfg.NewClient(fetchhttp.WithUserAgent("from-code"))
	require.NoError(t, err)
	assert.Equal(t, "from-code", client.Config().UserAgent)
}
