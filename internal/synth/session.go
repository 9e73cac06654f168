package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"articast/internal/config"
	"articast/internal/logging"
	"articast/internal/services"
	"articast/internal/voice"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// SessionOptions tune one Session.
type SessionOptions struct {
	Fallback       voice.Choice
	ItemTimeout    time.Duration
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// SessionOptionsFromConfig derives session options from the tts section.
func SessionOptionsFromConfig(cfg config.TTS) SessionOptions {
	return SessionOptions{
		Fallback:    voice.Choice{Engine: cfg.FallbackEngine, Voice: cfg.FallbackVoice},
		ItemTimeout: time.Duration(cfg.ItemTimeout) * time.Second,
		Attempts:    cfg.FallbackAttempts,
	}
}

// Result is the audio produced for one item.
type Result struct {
	Audio    []byte
	Engine   string
	Voice    string
	Format   string
	Fallback bool
}

// Session routes items to engines for one pipeline run and remembers which
// engines have been demoted. It is safe for concurrent use.
type Session struct {
	engines  Registry
	resolver *voice.Resolver
	opts     SessionOptions
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error

	mu      sync.Mutex
	demoted map[string]error
}

// NewSession creates a session with no demoted engines.
func NewSession(engines Registry, resolver *voice.Resolver, opts SessionOptions, logger *slog.Logger) *Session {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	return &Session{
		engines:  engines,
		resolver: resolver,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "synth"),
		sleep:    sleepContext,
		demoted:  make(map[string]error),
	}
}

// Synthesize produces audio for text in category. The resolved engine is
// tried once unless already demoted; on failure it is demoted for the rest of
// the session and the fallback engine is tried up to Attempts times with
// exponential backoff. The returned error is the terminal failure.
func (s *Session) Synthesize(ctx context.Context, category, text string) (Result, error) {
	choice := s.resolver.Resolve(category)
	logger := logging.WithContext(ctx, s.logger)

	var primaryErr error
	if reason := s.demotion(choice.Engine); reason == nil {
		result, err := s.attempt(ctx, choice, text)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, err
		}
		primaryErr = err
		s.demote(choice.Engine, err)
		logging.WarnWithContext(logger, "synthesis engine demoted for this run", "engine_demoted",
			logging.String(logging.FieldEngine, choice.Engine),
			logging.String("voice", choice.Voice),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "remaining items use the fallback engine until the next run"),
		)
	} else {
		primaryErr = fmt.Errorf("engine %s demoted earlier in this run: %w", choice.Engine, reason)
		logger.Debug("skipping demoted engine", logging.String(logging.FieldEngine, choice.Engine))
	}

	fallback := s.opts.Fallback
	if fallback.Engine == "" || fallback == choice {
		return Result{}, primaryErr
	}

	var lastErr error
	delay := s.opts.InitialBackoff
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		if attempt > 1 {
			logger.Info("retrying fallback engine",
				logging.String(logging.FieldEngine, fallback.Engine),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", delay),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return Result{}, services.Wrap(services.ErrSynthesis, fallback.Engine, "synthesize", "cancelled during backoff", err)
			}
			delay = min(delay*2, s.opts.MaxBackoff)
		}
		result, err := s.attempt(ctx, fallback, text)
		if err == nil {
			result.Fallback = true
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logger.Warn("fallback synthesis attempt failed",
			logging.String(logging.FieldEngine, fallback.Engine),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}
	return Result{}, errors.Join(primaryErr, lastErr)
}

func (s *Session) attempt(ctx context.Context, choice voice.Choice, text string) (Result, error) {
	engine, err := s.engines.Get(choice.Engine)
	if err != nil {
		return Result{}, err
	}
	callCtx := ctx
	if s.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.ItemTimeout)
		defer cancel()
	}
	audio, err := engine.Synthesize(callCtx, text, choice.Voice)
	if err == nil && len(audio) == 0 {
		err = failure(engine.Name(), "synthesize", "engine produced empty audio", nil)
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Result{}, services.Wrap(services.ErrSynthesis, engine.Name(), "synthesize",
				fmt.Sprintf("timed out after %s", s.opts.ItemTimeout), err)
		}
		return Result{}, err
	}
	return Result{Audio: audio, Engine: engine.Name(), Voice: choice.Voice, Format: engine.Format()}, nil
}

func (s *Session) demotion(engine string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demoted[engine]
}

func (s *Session) demote(engine string, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.demoted[engine]; !ok {
		s.demoted[engine] = reason
	}
}

// Demoted returns the engines demoted so far, sorted by name.
func (s *Session) Demoted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.demoted))
	for name := range s.demoted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
