package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"articast/internal/artifact"
	"articast/internal/config"
	"articast/internal/feed"
	"articast/internal/fileutil"
	"articast/internal/ledger"
	"articast/internal/logging"
	"articast/internal/services"
	"articast/internal/source"
	"articast/internal/synth"
	"articast/internal/textutil"
	"articast/internal/voice"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("pipeline run already in progress")

const runIDLayout = "20060102T150405.000Z"

const untitled = "Untitled"

// maxTagBytes bounds the category tag so tag and title together stay within
// the filesystem's 255-byte name limit.
const maxTagBytes = 48

// Ledger is the dedup state the pipeline reads and writes.
type Ledger interface {
	HasConverted(ctx context.Context, key source.Key) (bool, error)
	Record(ctx context.Context, rec ledger.Record) (bool, error)
}

// FeedGenerator rewrites the feed document.
type FeedGenerator interface {
	Generate(ctx context.Context) (feed.Result, error)
}

// Deps wires the collaborators of a pipeline.
type Deps struct {
	Config   *config.Config
	Sources  map[string]source.Source
	Ledger   Ledger
	Engines  synth.Registry
	Resolver *voice.Resolver
	Feed     FeedGenerator
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// RunOptions narrow a single run.
type RunOptions struct {
	// Sources restricts the run to categories of the named sources. Empty
	// means all configured sources.
	Sources []string
	// RunID labels the run in logs; generated when empty.
	RunID string
}

func (o RunOptions) includes(name string) bool {
	if len(o.Sources) == 0 {
		return true
	}
	for _, s := range o.Sources {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

// Pipeline converts items for the configured categories.
type Pipeline struct {
	cfg      *config.Config
	sources  map[string]source.Source
	ledger   Ledger
	engines  synth.Registry
	resolver *voice.Resolver
	feed     FeedGenerator
	base     *slog.Logger
	logger   *slog.Logger
	now      func() time.Time
}

// New validates deps and constructs a pipeline.
func New(deps Deps) (*Pipeline, error) {
	if deps.Config == nil || deps.Ledger == nil || deps.Engines == nil || deps.Feed == nil {
		return nil, errors.New("pipeline requires config, ledger, engines, and feed generator")
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = voice.FromConfig(deps.Config)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:      deps.Config,
		sources:  deps.Sources,
		ledger:   deps.Ledger,
		engines:  deps.Engines,
		resolver: resolver,
		feed:     deps.Feed,
		base:     deps.Logger,
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:      now,
	}, nil
}

// NewRunID returns a sortable identifier for a run started at t.
func NewRunID(t time.Time) string {
	return t.UTC().Format(runIDLayout)
}

// Run executes one conversion pass followed by feed regeneration. The
// returned error is ErrRunInProgress when the run lock is held, a lock
// failure, or a ledger write failure; everything else is reported in the
// Report.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Report, error) {
	lock := flock.New(p.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return Report{}, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release run lock", logging.Error(err), logging.String("lock_path", p.cfg.LockPath()))
		}
	}()

	started := p.now()
	report := Report{RunID: opts.RunID, StartedAt: started}
	if report.RunID == "" {
		report.RunID = NewRunID(started)
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, p.logger)

	runCtx := ctx
	if timeout := time.Duration(p.cfg.Schedule.RunTimeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("pipeline run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("categories", len(p.cfg.Categories)),
	)

	session := synth.NewSession(p.engines, p.resolver, synth.SessionOptionsFromConfig(p.cfg.TTS), p.base)
	runErr := p.convert(runCtx, session, opts, &report)
	report.Demoted = session.Demoted()
	if runCtx.Err() != nil {
		report.Interrupted = true
		logging.WarnWithContext(logger, "pipeline run interrupted", "run_interrupted",
			logging.Error(runCtx.Err()),
			logging.String(logging.FieldImpact, "remaining items will be picked up by the next run"),
			logging.String(logging.FieldErrorHint, "raise schedule.run_timeout if runs regularly time out"),
		)
	}

	p.regenerateFeed(context.WithoutCancel(ctx), logger, &report)

	report.FinishedAt = p.now()
	p.logSummary(logger, report)
	return report, runErr
}

func (p *Pipeline) convert(ctx context.Context, session *synth.Session, opts RunOptions, report *Report) error {
	for _, cat := range p.cfg.Categories {
		if !opts.includes(cat.Source) {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := p.convertCategory(ctx, session, cat, report); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) convertCategory(ctx context.Context, session *synth.Session, cat config.Category, report *Report) error {
	ctx = services.WithCategory(ctx, cat.Name)
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSource, cat.Source))

	src, ok := p.sources[cat.Source]
	if !ok {
		report.UnavailableCategories = append(report.UnavailableCategories, cat.Name)
		logging.WarnWithContext(logger, "category skipped; source not enabled", "category_skipped",
			logging.String(logging.FieldImpact, "no items converted for this category"),
			logging.String(logging.FieldErrorHint, "enable the source section or remove the category"),
		)
		return nil
	}

	items, err := src.ListItems(ctx, source.Category{Name: cat.Name, Stream: cat.Stream}, cat.Limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		report.UnavailableCategories = append(report.UnavailableCategories, cat.Name)
		attrs := append(logging.Failure(err),
			logging.String(logging.FieldImpact, "category skipped this run; other categories continue"),
		)
		logging.WarnWithContext(logger, "category skipped; source unavailable", "category_skipped", attrs...)
		return nil
	}

	report.Fetched += len(items)
	logger.Info("category fetched",
		logging.String(logging.FieldEventType, "category_fetched"),
		logging.Int("items", len(items)),
	)

	source.OldestFirst(items)
	for _, item := range items {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.convertItem(ctx, session, cat, item, report); err != nil {
			return err
		}
	}
	return nil
}

// convertItem handles one item. Only ledger failures are returned.
func (p *Pipeline) convertItem(ctx context.Context, session *synth.Session, cat config.Category, item source.Item, report *Report) error {
	key := item.Key()
	ctx = services.WithItemKey(ctx, key.String())
	logger := logging.WithContext(ctx, p.logger)
	// Ledger writes outlive run cancellation so an abandoned item is still
	// recorded as failed.
	ledgerCtx := context.WithoutCancel(ctx)

	converted, err := p.ledger.HasConverted(ledgerCtx, key)
	if err != nil {
		return p.ledgerFailure(logger, "lookup", key, err)
	}
	if converted {
		report.Skipped++
		logger.Debug("item already converted", logging.String("title", item.Title))
		return nil
	}

	text := textutil.SpeechText(item.Body)
	if text == "" {
		report.Empty++
		logger.Info("item skipped; no speakable text",
			logging.String(logging.FieldEventType, "item_empty"),
			logging.String("title", item.Title),
		)
		return nil
	}

	rec := ledger.Record{Key: key, Title: item.Title, Category: cat.Name}
	fileName, result, err := p.produce(ctx, session, cat, item, text)
	if err != nil {
		report.Failed++
		rec.Status = ledger.StatusFailed
		rec.Engine = result.Engine
		if rec.Engine == "" {
			rec.Engine = p.resolver.Resolve(cat.Name).Engine
		}
		rec.Error = err.Error()
		attrs := append(logging.Failure(err),
			logging.String("title", item.Title),
			logging.String(logging.FieldImpact, "item will be retried on the next run"),
		)
		logging.WarnWithContext(logger, "item conversion failed", "item_failed", attrs...)
	} else {
		report.Converted++
		report.Artifacts = append(report.Artifacts, fileName)
		rec.Status = ledger.StatusConverted
		rec.Artifact = fileName
		rec.Engine = result.Engine
		logger.Info("item converted",
			logging.String(logging.FieldEventType, "item_converted"),
			logging.String("title", item.Title),
			logging.String("artifact", fileName),
			logging.String(logging.FieldEngine, result.Engine),
			logging.String("voice", result.Voice),
			logging.Bool("fallback", result.Fallback),
			logging.Int64("artifact_bytes", int64(len(result.Audio))),
		)
	}

	if _, err := p.ledger.Record(ledgerCtx, rec); err != nil {
		return p.ledgerFailure(logger, "record", key, err)
	}
	return nil
}

func (p *Pipeline) produce(ctx context.Context, session *synth.Session, cat config.Category, item source.Item, text string) (string, synth.Result, error) {
	result, err := session.Synthesize(ctx, cat.Name, text)
	if err != nil {
		return "", result, err
	}

	name, err := artifact.Available(p.cfg.Paths.OutputDir, p.artifactName(cat, item, result.Format))
	if err != nil {
		return "", result, fmt.Errorf("choose artifact name: %w", err)
	}
	fileName := artifact.Format(name)
	path := filepath.Join(p.cfg.Paths.OutputDir, fileName)
	if err := fileutil.WriteFileAtomic(path, result.Audio, 0o644); err != nil {
		return "", result, fmt.Errorf("write artifact: %w", err)
	}
	return fileName, result, nil
}

func (p *Pipeline) artifactName(cat config.Category, item source.Item, format string) artifact.Name {
	title := textutil.SanitizeFileName(item.Title)
	if title == "" {
		title = untitled
	}
	tag := strings.NewReplacer("[", "", "]", "").Replace(textutil.SanitizeFileName(cat.Name))
	tag = textutil.TruncateBytes(strings.TrimSpace(tag), maxTagBytes)
	ext := strings.ToLower(strings.TrimSpace(format))
	if !artifact.Accepted(ext) {
		ext = artifact.ExtMP3
	}
	return artifact.Name{
		Tag:   strings.TrimSpace(tag),
		Title: title,
		Stamp: p.now().Truncate(time.Second),
		Ext:   ext,
	}
}

func (p *Pipeline) ledgerFailure(logger *slog.Logger, op string, key source.Key, err error) error {
	wrapped := services.Wrap(services.ErrLedgerWrite, "ledger", op, key.String(), err)
	attrs := append(logging.Failure(wrapped),
		logging.String(logging.FieldImpact, "run aborted; remaining items wait for the next run"),
	)
	logging.ErrorWithContext(logger, "ledger write failed", "ledger_failed", attrs...)
	return wrapped
}

func (p *Pipeline) regenerateFeed(ctx context.Context, logger *slog.Logger, report *Report) {
	result, err := p.feed.Generate(ctx)
	report.Feed = result
	report.FeedErr = err
	switch {
	case err == nil:
	case errors.Is(err, feed.ErrNoEpisodes):
		logger.Info("feed not written; no episodes yet",
			logging.String(logging.FieldEventType, "feed_empty"),
			logging.String("output_dir", p.cfg.Paths.OutputDir),
		)
	default:
		attrs := append(logging.Failure(err),
			logging.String(logging.FieldImpact, "previous feed stays in place"),
		)
		logging.WarnWithContext(logger, "feed regeneration failed", "feed_failed", attrs...)
	}
}

func (p *Pipeline) logSummary(logger *slog.Logger, report Report) {
	attrs := []logging.Attr{
		logging.Int("fetched", report.Fetched),
		logging.Int("converted", report.Converted),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.Int("episodes", report.Feed.Episodes),
		logging.Duration("elapsed", report.Elapsed()),
	}
	if len(report.Demoted) > 0 {
		attrs = append(attrs, logging.String("demoted", strings.Join(report.Demoted, ",")))
	}
	if len(report.UnavailableCategories) > 0 {
		attrs = append(attrs, logging.String("unavailable", strings.Join(report.UnavailableCategories, ",")))
	}
	if report.AllFailed() {
		attrs = append(attrs,
			logging.String(logging.FieldImpact, "no new episodes this run"),
			logging.String(logging.FieldErrorHint, "check synthesis engine availability with 'articast run test'"),
		)
		logging.WarnWithContext(logger, "pipeline run finished; every item failed", "run_all_failed", attrs...)
		return
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "run_finished"))
	logger.Info("pipeline run finished", logging.Args(attrs...)...)
}
