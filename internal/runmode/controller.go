package runmode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"articast/internal/config"
	"articast/internal/logging"
	"articast/internal/pipeline"
	"articast/internal/preflight"
	"articast/internal/services"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.Report, error)
}

// FeedServer serves the output directory.
type FeedServer interface {
	Listen() error
	Serve(ctx context.Context) error
	Addr() string
}

// Scheduler fires a callback on every schedule boundary.
type Scheduler interface {
	Expression() string
	Run(ctx context.Context, fn func(context.Context)) error
}

// Options wires a Controller. Pipeline, Server, and Trigger are only
// required by the modes that use them.
type Options struct {
	Config       *config.Config
	ConfigPath   string
	ConfigExists bool
	Logger       *slog.Logger

	Pipeline Runner
	Server   FeedServer
	Trigger  Scheduler
	// Sources restricts pipeline runs to the named sources.
	Sources []string

	// Diagnostics runs the test-mode checks; defaults to preflight.RunAll
	// over Preflight.
	Diagnostics func(ctx context.Context, opts preflight.Options) []preflight.Result
	Preflight   preflight.Options

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
	// Shell runs the interactive shell; defaults to an exec of $SHELL.
	Shell func(ctx context.Context, path string, stdin *os.File, stdout, stderr io.Writer) error
}

// Controller dispatches a Mode to its lifecycle.
type Controller struct {
	opts   Options
	logger *slog.Logger
}

// ErrDiagnosticsFailed is returned by test mode when a required check fails.
var ErrDiagnosticsFailed = errors.New("diagnostic checks failed")

// New validates the common options.
func New(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, errors.New("run mode requires a configuration")
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = preflight.RunAll
	}
	if opts.Shell == nil {
		opts.Shell = execShell
	}
	return &Controller{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "runmode")}, nil
}

// Run executes mode until it completes or ctx is cancelled. Cancellation is
// a clean exit for the long-lived modes.
func (c *Controller) Run(ctx context.Context, mode Mode) error {
	c.logger.Info("run mode selected",
		logging.String(logging.FieldEventType, "mode_selected"),
		logging.String("mode", string(mode)),
	)
	switch mode {
	case ModeUpdate:
		return c.runUpdate(ctx)
	case ModeUpdateLoop:
		return c.runUpdateLoop(ctx)
	case ModeServer:
		return c.runServer(ctx)
	case ModeTest:
		return c.runTest(ctx)
	case ModeShell:
		return c.runShell(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (c *Controller) runUpdate(ctx context.Context) error {
	if c.opts.Pipeline == nil {
		return errors.New("update mode requires a pipeline")
	}
	return c.runOnce(ctx)
}

func (c *Controller) runUpdateLoop(ctx context.Context) error {
	if c.opts.Pipeline == nil || c.opts.Trigger == nil {
		return errors.New("update-loop mode requires a pipeline and a schedule")
	}
	return c.loop(ctx, true)
}

func (c *Controller) runServer(ctx context.Context) error {
	if c.opts.Pipeline == nil || c.opts.Server == nil || c.opts.Trigger == nil {
		return errors.New("server mode requires a pipeline, a feed server, and a schedule")
	}
	if err := c.opts.Server.Listen(); err != nil {
		attrs := append(logging.Failure(err), logging.String("bind", c.opts.Config.Server.Bind))
		logging.ErrorWithContext(c.logger, "feed server could not bind", "server_bind_failed", attrs...)
		return err
	}

	// The initial run completes before the first request is accepted.
	c.tick(ctx)
	if ctx.Err() != nil {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.opts.Server.Serve(groupCtx)
	})
	group.Go(func() error {
		return c.loop(groupCtx, false)
	})
	err := group.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loop runs the pipeline on every schedule boundary, and first immediately
// when runNow is set.
func (c *Controller) loop(ctx context.Context, runNow bool) error {
	c.logger.Info("schedule active",
		logging.String(logging.FieldEventType, "schedule_started"),
		logging.String("expression", c.opts.Trigger.Expression()),
	)
	if runNow {
		c.tick(ctx)
		if ctx.Err() != nil {
			return nil
		}
	}
	return c.opts.Trigger.Run(ctx, c.tick)
}

// tick is one best-effort scheduled run. Ledger failures end a single update
// but only a logged error here.
func (c *Controller) tick(ctx context.Context) {
	if err := c.runOnce(ctx); err != nil {
		attrs := append(logging.Failure(err),
			logging.String(logging.FieldImpact, "this run was abandoned; the schedule continues"),
		)
		logging.ErrorWithContext(c.logger, "scheduled run failed", "run_failed", attrs...)
	}
}

func (c *Controller) runOnce(ctx context.Context) error {
	report, err := c.opts.Pipeline.Run(ctx, pipeline.RunOptions{Sources: c.opts.Sources})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.logger.Info("run skipped; another run holds the lock",
			logging.String(logging.FieldEventType, "run_skipped"),
			logging.String("lock_path", c.opts.Config.LockPath()),
		)
		return nil
	case errors.Is(err, services.ErrLedgerWrite):
		return fmt.Errorf("run %s: %w", report.RunID, err)
	default:
		return err
	}
}

func (c *Controller) runTest(ctx context.Context) error {
	opts := c.opts.Preflight
	opts.Config = c.opts.Config
	if opts.ConfigPath == "" {
		opts.ConfigPath = c.opts.ConfigPath
		opts.ConfigExists = c.opts.ConfigExists
	}
	results := c.opts.Diagnostics(ctx, opts)
	fmt.Fprintln(c.opts.Stdout, renderResults(results))
	if preflight.Failed(results) {
		failed := make([]string, 0, len(results))
		for _, result := range results {
			if !result.Passed && !result.Optional {
				failed = append(failed, result.Name)
			}
		}
		return fmt.Errorf("%w: %s", ErrDiagnosticsFailed, strings.Join(failed, ", "))
	}
	fmt.Fprintln(c.opts.Stdout, "All required checks passed.")
	return nil
}
