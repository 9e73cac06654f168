package runmode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"

	"articast/internal/logging"
)

const defaultShell = "/bin/sh"

// ErrNoTerminal is returned by shell mode when stdin is not a terminal.
var ErrNoTerminal = errors.New("shell mode requires an interactive terminal")

func (c *Controller) runShell(ctx context.Context) error {
	fd := c.opts.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ErrNoTerminal
	}
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell == "" {
		shell = defaultShell
	}
	c.logger.Info("starting interactive shell",
		logging.String(logging.FieldEventType, "shell_started"),
		logging.String("shell", shell),
	)
	return c.opts.Shell(ctx, shell, c.opts.Stdin, c.opts.Stdout, c.opts.Stderr)
}

func execShell(ctx context.Context, path string, stdin *os.File, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("shell exited with status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("run shell %s: %w", path, err)
	}
	return nil
}
