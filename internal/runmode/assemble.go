package runmode

import (
	"context"
	"fmt"

	"articast/internal/feed"
	"articast/internal/ledger"
	"articast/internal/pipeline"
	"articast/internal/schedule"
	"articast/internal/server"
	"articast/internal/source"
	"articast/internal/synth"
	"articast/internal/voice"
)

// Assemble fills the production collaborators mode needs into opts and
// returns a controller plus a cleanup that closes the ledger. opts.Config
// must already be validated.
func Assemble(ctx context.Context, mode Mode, opts Options) (*Controller, func() error, error) {
	cleanup := func() error { return nil }
	if opts.Config == nil {
		return nil, cleanup, fmt.Errorf("run mode requires a configuration")
	}
	cfg := opts.Config
	engines := synth.NewRegistry(cfg.TTS)

	switch mode {
	case ModeUpdate, ModeUpdateLoop, ModeServer:
		store, err := ledger.Open(ctx, cfg.LedgerPath())
		if err != nil {
			return nil, cleanup, fmt.Errorf("open ledger: %w", err)
		}
		cleanup = store.Close

		p, err := pipeline.New(pipeline.Deps{
			Config:   cfg,
			Sources:  source.FromConfig(cfg),
			Ledger:   store,
			Engines:  engines,
			Resolver: voice.FromConfig(cfg),
			Feed:     feed.NewSynthesizer(cfg, nil, opts.Logger),
			Logger:   opts.Logger,
		})
		if err != nil {
			_ = cleanup()
			return nil, func() error { return nil }, err
		}
		opts.Pipeline = p

		if mode != ModeUpdate {
			trigger, err := schedule.New(cfg.Schedule.Expression, opts.Logger)
			if err != nil {
				_ = cleanup()
				return nil, func() error { return nil }, err
			}
			opts.Trigger = trigger
		}
		if mode == ModeServer {
			opts.Server = server.New(cfg, opts.Logger)
		}
	case ModeTest:
		opts.Preflight.Engines = engines
	}

	controller, err := New(opts)
	if err != nil {
		_ = cleanup()
		return nil, func() error { return nil }, err
	}
	return controller, cleanup, nil
}
