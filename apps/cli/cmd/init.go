package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetch/packages/core/config"
)

var (
	forceInit    bool
	initJSONFlag bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a config file with the default client settings to the current
directory. Commands run from this directory pick it up automatically.

This creates .fetch.yaml, or .fetch.json with --json.

Examples:
  fetch init
  fetch init --json --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().BoolVar(&initJSONFlag, "json", false, "Write JSON instead of YAML")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	name := ".fetch.yaml"
	if initJSONFlag {
		name = ".fetch.json"
	}
	configFile := filepath.Join(cwd, name)

	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile)}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Retries = 3
	cfg.Headers = map[string]string{
		"Accept": "application/json",
	}

	if err := cfg.SaveConfig(configFile); err != nil {
		return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("failed to create config file: %w", err)}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'fetch request <url>' to send a request with these settings.\n")

	return nil
}
