package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/config"
	"github.com/dtudk/dtu-env/internal/installer"
	"github.com/dtudk/dtu-env/internal/logger"
	"github.com/dtudk/dtu-env/internal/wizard"
)

func runShell(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info().
		Str("version", version).
		Str("source", string(cfg.Source)).
		Bool("token", cfg.HasToken()).
		Str("config", cfg.ConfigFile).
		Msg("starting")

	src := catalog.New(cfg, log)
	label := ""
	if s, ok := src.(fmt.Stringer); ok {
		label = s.String()
	}

	batches, err := wizard.Run(cmd.Context(), wizard.Options{
		Version:     version,
		Source:      src,
		Installer:   &installer.Installer{Source: src, Log: log},
		Log:         log,
		SourceLabel: label,
	})
	printSummary(cmd, batches, log.LogPath())
	return err
}

// ── session summary ───────────────────────────────────────────────────────────

// printSummary repeats the results after the alternate screen is gone and
// points at the log file when one was written.
func printSummary(cmd *cobra.Command, batches []installer.Summary, logPath string) {
	out := cmd.OutOrStdout()
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	if len(batches) == 0 {
		if logPath != "" {
			fmt.Fprintf(out, "  %s\n", dim.Render("Log: "+logPath))
		}
		return
	}
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	var total installer.Summary
	fmt.Fprintln(out)
	for _, b := range batches {
		for _, o := range b.Outcomes {
			if o.OK() {
				fmt.Fprintf(out, "  %s %s%s\n", ok.Render("✓"), o.Message(),
					dim.Render(fmt.Sprintf("  (%s)", o.Duration.Round(time.Second))))
				fmt.Fprintf(out, "    conda activate %s\n", o.Name)
			} else {
				fmt.Fprintf(out, "  %s %s\n", bad.Render("✗"), o.Message())
			}
		}
		total.Installed += b.Installed
		total.Failed += b.Failed
		total.Skipped += b.Skipped
	}
	fmt.Fprintf(out, "\n  %s\n", total.String())
	if logPath != "" {
		fmt.Fprintf(out, "  %s\n", dim.Render("Log: "+logPath))
	}
	fmt.Fprintln(out)
}
