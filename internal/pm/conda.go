package pm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long a cancelled install may take to exit after the
// interrupt before it is killed.
const waitDelay = 10 * time.Second

// CondaManager implements PackageManager for mamba and conda, which share
// the same env subcommands.
type CondaManager struct {
	// Binary is "mamba" or "conda".
	Binary string
	// Path is the resolved executable.
	Path string
}

func (c *CondaManager) Name() string { return c.Binary }

func (c *CondaManager) ListEnvironments(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, c.executable(), "env", "list", "--json")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s env list: %w", c.Binary, err)
	}

	var result struct {
		Envs []string `json:"envs"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("%s env list: %w", c.Binary, err)
	}

	names := make([]string, 0, len(result.Envs))
	for _, prefix := range result.Envs {
		if name := envName(prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (c *CondaManager) CreateEnvironment(ctx context.Context, file string, progress chan<- Progress) error {
	cmd := exec.CommandContext(ctx, c.executable(), "env", "create", "-f", file, "--yes")
	// Interrupt first so the package manager can clean up a half-built env.
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", c.Binary, err)
	}

	// stream both stdout and stderr as progress lines
	done := make(chan struct{}, 2)
	pipe := func(r io.Reader, isErr bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanTerminalLines)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) != "" {
				progress <- Progress{Line: line, Stderr: isErr}
			}
		}
		// a line over the buffer limit stops the scanner; the pipe must
		// still be emptied before Wait
		_, _ = io.Copy(io.Discard, r)
		done <- struct{}{}
	}
	go pipe(stdout, false)
	go pipe(stderr, true)
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s env create: %w", c.Binary, ctx.Err())
		}
		return fmt.Errorf("%s env create: %w", c.Binary, err)
	}
	return nil
}

func (c *CondaManager) executable() string {
	if c.Path != "" {
		return c.Path
	}
	return c.Binary
}

// scanTerminalLines splits on \n, \r\n and bare \r, so progress bars that
// redraw with carriage returns arrive as separate lines.
func scanTerminalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) && data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			if i+1 == len(data) && !atEOF {
				// need one more byte to tell \r from \r\n
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
