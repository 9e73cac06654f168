package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"articast/internal/config"
	"articast/internal/logging"
	"articast/internal/pipeline"
	"articast/internal/runmode"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sourceFlag string

	cmd := &cobra.Command{
		Use:   "run [mode]",
		Short: "Run the server, a single update, the update loop, diagnostics, or a shell",
		Long: "Run articast in one of its modes. The mode comes from the argument, else\n" +
			"ARTICAST_MODE, else the configured mode, else server.\n\n" +
			"  server       serve the feed and convert on schedule\n" +
			"  update       convert once and regenerate the feed\n" +
			"  update-loop  convert now and on every schedule boundary\n" +
			"  test         check configuration, network, engines, and binaries\n" +
			"  shell        open an interactive shell",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"server", "update", "update-loop", "test", "shell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			mode, err := runmode.Resolve(arg, cfg.Mode)
			if err != nil {
				return err
			}
			sources, err := parseSources(sourceFlag)
			if err != nil {
				return err
			}
			return runProcess(cmd, ctx, mode, sources)
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "both", "Sources to convert from: freshrss, wallabag, or both")
	return cmd
}

func runProcess(cmd *cobra.Command, ctx *commandContext, mode runmode.Mode, sources []string) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := ctx.config
	runID := pipeline.NewRunID(time.Now())
	logger, _, err := runmode.Bootstrap(cfg, runID)
	if err != nil {
		return err
	}

	controller, cleanup, err := runmode.Assemble(signalCtx, mode, runmode.Options{
		Config:       cfg,
		ConfigPath:   ctx.configPath,
		ConfigExists: ctx.configExists,
		Logger:       logger,
		Sources:      sources,
		Stdin:        os.Stdin,
		Stdout:       cmd.OutOrStdout(),
		Stderr:       cmd.ErrOrStderr(),
	})
	if err != nil {
		logging.ErrorWithContext(logger, "run mode setup failed", "setup_failed", logging.Failure(err)...)
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("ledger close failed", logging.Error(err))
		}
	}()

	err = controller.Run(signalCtx, mode)
	if signalCtx.Err() != nil && err == nil {
		logger.Info("articast shutting down", logging.String(logging.FieldEventType, "shutdown"))
	}
	return err
}

func parseSources(value string) ([]string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "both" || value == "all" {
		return nil, nil
	}
	var sources []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case config.SourceFreshRSS, config.SourceWallabag:
			sources = append(sources, part)
		case "":
		default:
			return nil, fmt.Errorf("unknown source %q (expected freshrss, wallabag, or both)", part)
		}
	}
	return sources, nil
}

