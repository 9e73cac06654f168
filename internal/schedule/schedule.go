// Package schedule fires a callback on cron expression boundaries.
//
// Callbacks run on the trigger's own goroutine, one at a time. Boundaries
// that pass while a callback is still running are skipped and logged rather
// than queued, so a slow run never causes a burst of catch-up runs.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"articast/internal/logging"
	"articast/internal/services"
)

// Trigger evaluates one cron expression.
type Trigger struct {
	expr   string
	logger *slog.Logger
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) error
}

// New validates expr and returns a trigger for it.
func New(expr string, logger *slog.Logger) (*Trigger, error) {
	expr = strings.Join(strings.Fields(expr), " ")
	if !gronx.New().IsValid(expr) {
		return nil, services.Wrap(services.ErrConfiguration, "schedule", "parse", fmt.Sprintf("invalid cron expression %q", expr), nil)
	}
	return &Trigger{
		expr:   expr,
		logger: logging.NewComponentLogger(logger, "schedule"),
		now:    time.Now,
		wait:   waitContext,
	}, nil
}

// Expression returns the normalised cron expression.
func (t *Trigger) Expression() string { return t.expr }

// Next returns the first boundary strictly after ref.
func (t *Trigger) Next(ref time.Time) (time.Time, error) {
	next, err := gronx.NextTickAfter(t.expr, ref, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("next tick for %q: %w", t.expr, err)
	}
	return next, nil
}

// Run invokes fn at every boundary until ctx is cancelled. It returns nil on
// cancellation.
func (t *Trigger) Run(ctx context.Context, fn func(context.Context)) error {
	for {
		next, err := t.Next(t.now())
		if err != nil {
			return err
		}
		t.logger.Info("next scheduled run",
			logging.String(logging.FieldEventType, "schedule_next"),
			logging.Time("next_run", next),
		)
		if err := t.wait(ctx, next.Sub(t.now())); err != nil {
			return nil
		}

		fn(ctx)
		if ctx.Err() != nil {
			return nil
		}
		t.logSkipped(next)
	}
}

func (t *Trigger) logSkipped(fired time.Time) {
	now := t.now()
	skipped := 0
	ref := fired
	for skipped < 1000 {
		tick, err := t.Next(ref)
		if err != nil || !tick.Before(now) {
			break
		}
		skipped++
		ref = tick
	}
	if skipped == 0 {
		return
	}
	logging.WarnWithContext(t.logger, "scheduled runs skipped while a run was in progress", "schedule_overlap",
		logging.Int("skipped", skipped),
		logging.String(logging.FieldImpact, "items wait for the next boundary"),
		logging.String(logging.FieldErrorHint, "widen schedule.expression or lower category limits"),
	)
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
