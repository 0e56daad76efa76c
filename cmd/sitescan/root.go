package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	seclog "github.com/nao1215/sitescan/internal/log"
)

// NewRootCmd creates the root command for sitescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescan",
		Short: "Submit websites to a security scan service and report the findings",
		Long: `sitescan sends a website to a remote security scan service and reports
which security checks it passed: security headers, cookie flags, SQL injection
and XSS surfaces, open ports and more.

The scan service URL defaults to http://localhost:5000/api/scan and can be set
in the .sitescan configuration file or the SITESCAN_SERVICE_URL variable.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitescan in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration shared by every command: defaults,
// the config file, .env and the environment. Command flags are applied on
// top by each command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadDotEnv()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger installs a logger that masks credentials as the default.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	var logger *slog.Logger
	if jsonFormat {
		logger = seclog.NewSecureJSONLogger(w, verbose)
	} else {
		logger = seclog.NewSecureLogger(w, verbose)
	}
	slog.SetDefault(logger)
	return logger
}
