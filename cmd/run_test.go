package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/dtudk/dtu-env/internal/installer"
)

// TestPrintSummary verifies the recap lists every outcome and the totals.
func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)

	printSummary(c, []installer.Summary{
		{Installed: 1, Outcomes: []installer.Outcome{{Name: "math1b", Kind: installer.Success}}},
		{Failed: 1, Skipped: 1, Outcomes: []installer.Outcome{
			{Name: "stats", Kind: installer.InstallFailed, Manager: "mamba", ExitCode: 1, Err: errors.New("exit status 1")},
		}},
	}, "/tmp/dtu-env.log")

	out := buf.String()
	for _, want := range []string{
		"Created math1b",
		"conda activate math1b",
		"stats: mamba exited with code 1",
		"1 installed, 1 failed, 1 skipped",
		"Log: /tmp/dtu-env.log",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	printSummary(c, nil, "")
	if buf.Len() != 0 {
		t.Errorf("printSummary(nil) wrote %q", buf.String())
	}
}

// TestPrintSummaryLogOnly verifies the log path is shown even without installs.
func TestPrintSummaryLogOnly(t *testing.T) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	printSummary(c, nil, "/tmp/dtu-env.log")
	if !strings.Contains(buf.String(), "Log: /tmp/dtu-env.log") {
		t.Errorf("printSummary() = %q, want the log path", buf.String())
	}
}
