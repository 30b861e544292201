// Package cmd implements the dtu-env command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersionInfo is called from main.go with values injected at build time via -ldflags.
// It must be called before Execute().
func SetVersionInfo(v, commit, date string) {
	version = v
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"dtu-env %s (commit %s, built %s)\n", v, commit, date,
	))
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "dtu-env",
	Short: "Install DTU course conda environments",
	Long: `dtu-env browses the DTU course environment catalog and creates the
chosen environments with mamba or conda.

Settings are read from DTU_ENV_* variables, .env files in the working
directory and $XDG_CONFIG_HOME/dtu-env/config.yaml:

  DTU_ENV_SOURCE      live (default), bundled or auto
  DTU_ENV_TIMEOUT     network timeout, e.g. 15s
  DTU_ENV_LOG_FILE    append a debug log to this file
  DTU_ENV_LOG_LEVEL   debug, info, warn or error
  GITHUB_TOKEN        raises the GitHub API limit to 5000 requests/hour`,
	RunE:         runShell,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func init() {
	// Registered by hand so the shorthand is -V; cobra still handles it.
	rootCmd.Flags().BoolP("version", "V", false, "print version and exit")
}
