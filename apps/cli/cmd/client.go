package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetch/packages/auth"
	"github.com/abdul-hamid-achik/fetch/packages/core/config"
	fetchhttp "github.com/abdul-hamid-achik/fetch/packages/http"
)

// clientFlags are the persistent flags that shape the fetch client. They
// are layered over the config file.
type clientFlags struct {
	configPath     string
	timeout        string
	connectTimeout string
	retries        int
	retryDelay     string
	noFollow       bool
	maxRedirects   int
	userAgent      string
	user           string
	digest         bool
	bearer         string
	awsSigV4       string
	insecure       bool
	proxy          string
	rate           float64
	burst          int
	logLevel       string
}

var clientOpts clientFlags

func addClientFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&clientOpts.configPath, "config", getEnvString("FETCH_CONFIG", ""), "Path to config file (env: FETCH_CONFIG)")
	flags.StringVar(&clientOpts.timeout, "timeout", getEnvString("FETCH_TIMEOUT", ""), "Total request timeout, e.g. 30s (env: FETCH_TIMEOUT)")
	flags.StringVar(&clientOpts.connectTimeout, "connect-timeout", "", "Connection timeout, e.g. 5s")
	flags.IntVar(&clientOpts.retries, "retries", getEnvInt("FETCH_RETRIES", 0), "Total attempts for retryable statuses (env: FETCH_RETRIES)")
	flags.StringVar(&clientOpts.retryDelay, "retry-delay", "", "Delay between attempts, e.g. 500ms")
	flags.BoolVar(&clientOpts.noFollow, "no-follow", false, "Do not follow redirects")
	flags.IntVar(&clientOpts.maxRedirects, "max-redirects", 0, "Maximum redirects to follow")
	flags.StringVarP(&clientOpts.userAgent, "user-agent", "A", "", "User-Agent header")
	flags.StringVarP(&clientOpts.user, "user", "u", getEnvString("FETCH_USER", ""), "Credentials as user:password (env: FETCH_USER)")
	flags.BoolVar(&clientOpts.digest, "digest", false, "Use digest authentication with --user")
	flags.StringVar(&clientOpts.bearer, "bearer", getEnvString("FETCH_BEARER", ""), "Bearer token (env: FETCH_BEARER)")
	flags.StringVar(&clientOpts.awsSigV4, "aws-sigv4", "", "Sign with AWS SigV4 as region:service, credentials from AWS_* env vars")
	flags.BoolVarP(&clientOpts.insecure, "insecure", "k", getEnvBool("FETCH_INSECURE", false), "Disable SSL certificate validation (env: FETCH_INSECURE)")
	flags.StringVar(&clientOpts.proxy, "proxy", getEnvString("FETCH_PROXY", ""), "Proxy URL (env: FETCH_PROXY)")
	flags.Float64Var(&clientOpts.rate, "rate", 0, "Maximum attempts per second")
	flags.IntVar(&clientOpts.burst, "burst", 0, "Burst size for --rate")
	flags.StringVar(&clientOpts.logLevel, "log-level", getEnvString("FETCH_LOG_LEVEL", ""), "Log attempts to stderr at this level: debug, info, warn (env: FETCH_LOG_LEVEL)")
}

func parseMillis(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w (use format like 30s, 1m, 500ms)", name, value, err)
	}
	return int(d.Milliseconds()), nil
}

// overrides turns the flags into a config that Merge layers over the file.
func (f clientFlags) overrides() (*config.Config, error) {
	var err error
	cfg := &config.Config{
		Retries:      f.retries,
		MaxRedirects: f.maxRedirects,
		UserAgent:    f.userAgent,
		Proxy:        f.proxy,
		RateLimit:    f.rate,
		RateBurst:    f.burst,
		LogLevel:     f.logLevel,
	}
	if cfg.Timeout, err = parseMillis("timeout", f.timeout); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = parseMillis("connect-timeout", f.connectTimeout); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = parseMillis("retry-delay", f.retryDelay); err != nil {
		return nil, err
	}
	if f.noFollow {
		cfg.FollowRedirects = config.BoolPtr(false)
	}
	if f.insecure {
		cfg.ValidateSSL = config.BoolPtr(false)
	}
	return cfg, nil
}

// loadConfig reads the config file and applies the flags on top.
func (f clientFlags) loadConfig() (*config.Config, error) {
	fileConfig, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	overrides, err := f.overrides()
	if err != nil {
		return nil, err
	}
	return fileConfig.Merge(overrides), nil
}

// configPathInUse returns the config file that loadConfig reads, if any.
func (f clientFlags) configPathInUse() string {
	if f.configPath != "" {
		return f.configPath
	}
	for _, name := range config.ConfigFilenames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func (f clientFlags) authOptions() ([]fetchhttp.ClientOption, error) {
	var opts []fetchhttp.ClientOption

	if f.user != "" {
		username, password, _ := strings.Cut(f.user, ":")
		if f.digest {
			opts = append(opts, auth.WithDigest(auth.DigestCredentials{Username: username, Password: password}))
		} else {
			opts = append(opts, auth.WithSigner(auth.Basic(username, password)))
		}
	}
	if f.bearer != "" {
		opts = append(opts, auth.WithSigner(auth.Bearer(f.bearer)))
	}
	if f.awsSigV4 != "" {
		region, service, ok := strings.Cut(f.awsSigV4, ":")
		if !ok || region == "" || service == "" {
			return nil, fmt.Errorf("invalid --aws-sigv4 value %q (use region:service)", f.awsSigV4)
		}
		opts = append(opts, auth.WithSigner(auth.AWS(auth.AWSCredentials{
			AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken: os.Getenv("AWS_SESSION_TOKEN"),
			Region:       region,
			Service:      service,
		})))
	}
	return opts, nil
}

// newClient builds the fetch client for a command. extra options are applied
// before authentication so signers wrap the final transport.
func (f clientFlags) newClient(extra ...fetchhttp.ClientOption) (*fetchhttp.Client, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	authOpts, err := f.authOptions()
	if err != nil {
		return nil, &ExitError{Code: ExitUsageError, Err: err}
	}
	client, err := cfg.NewClient(append(extra, authOpts...)...)
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	return client, nil
}
