package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"articast/internal/artifact"
	"articast/internal/config"
	"articast/internal/duration"
	"articast/internal/fileutil"
	"articast/internal/logging"
	"articast/internal/services"
)

// ErrNoEpisodes reports an output directory without audio files. The
// existing feed document is left untouched.
var ErrNoEpisodes = errors.New("no episodes found")

// Prober measures episode durations.
type Prober interface {
	Probe(ctx context.Context, path string, size int64) (time.Duration, duration.Method)
}

// Result summarises one feed generation.
type Result struct {
	Path     string
	Episodes int
	Excluded int
	Bytes    int64
}

// Synthesizer builds and writes the feed document.
type Synthesizer struct {
	feed      config.Feed
	outputDir string
	path      string
	prober    Prober
	logger    *slog.Logger
	now       func() time.Time
}

// NewSynthesizer creates a synthesizer for the configured output directory.
func NewSynthesizer(cfg *config.Config, prober Prober, logger *slog.Logger) *Synthesizer {
	if prober == nil {
		prober = duration.NewProber(cfg.Duration, logger)
	}
	return &Synthesizer{
		feed:      cfg.Feed,
		outputDir: cfg.Paths.OutputDir,
		path:      cfg.FeedPath(),
		prober:    prober,
		logger:    logging.NewComponentLogger(logger, "feed"),
		now:       time.Now,
	}
}

// WithOutputDir returns a copy that reads artifacts from dir and writes the
// feed document there.
func (s *Synthesizer) WithOutputDir(dir string) *Synthesizer {
	clone := *s
	clone.outputDir = dir
	clone.path = filepath.Join(dir, s.feed.Filename)
	return &clone
}

// Build scans the output directory and returns the feed document in memory.
func (s *Synthesizer) Build(ctx context.Context) (*Document, error) {
	doc, _, err := s.build(ctx)
	return doc, err
}

func (s *Synthesizer) build(ctx context.Context) (*Document, int, error) {
	artifacts, err := artifact.Scan(s.outputDir)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrFeedSynthesis, "feed", "scan", s.outputDir, err)
	}
	if len(artifacts) == 0 {
		return nil, 0, services.Wrap(services.ErrFeedSynthesis, "feed", "scan", s.outputDir, ErrNoEpisodes)
	}

	artifact.SortNewestFirst(artifacts)
	excluded := 0
	if limit := s.feed.MaxEpisodes; limit > 0 && len(artifacts) > limit {
		excluded = len(artifacts) - limit
		artifacts = artifacts[:limit]
	}

	doc := s.channel()
	doc.Channel.Items = make([]Item, 0, len(artifacts))
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		doc.Channel.Items = append(doc.Channel.Items, s.item(ctx, a))
	}
	return doc, excluded, nil
}

// Generate builds the feed and atomically replaces the feed document.
func (s *Synthesizer) Generate(ctx context.Context) (Result, error) {
	doc, excluded, err := s.build(ctx)
	if err != nil {
		return Result{}, err
	}

	var written int64
	err = fileutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		n, err := Encode(w, doc)
		written = n
		return err
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrFeedSynthesis, "feed", "write", s.path, err)
	}

	result := Result{Path: s.path, Episodes: len(doc.Channel.Items), Excluded: excluded, Bytes: written}
	s.logger.Info("feed regenerated",
		logging.String(logging.FieldEventType, "feed_regenerated"),
		logging.Int("episodes", result.Episodes),
		logging.Int("excluded", result.Excluded),
		logging.Int64("feed_bytes", result.Bytes),
		logging.String("feed_path", result.Path),
	)
	return result, nil
}

// Encode writes doc as an indented XML document and returns the byte count.
func Encode(w io.Writer, doc *Document) (int64, error) {
	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, xml.Header); err != nil {
		return cw.n, err
	}
	enc := xml.NewEncoder(cw)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return cw.n, fmt.Errorf("encode feed: %w", err)
	}
	if _, err := io.WriteString(cw, "\n"); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func (s *Synthesizer) channel() *Document {
	f := s.feed
	ch := Channel{
		Title:         f.Title,
		Description:   f.Description,
		Link:          f.BaseURL,
		Language:      f.Language,
		LastBuildDate: s.now().Format(time.RFC1123Z),
		Generator:     generator,
		Author:        f.Author,
		Explicit:      explicitValue(f.Explicit),
	}
	if f.Email != "" {
		ch.ManagingEditor = f.Email
		if f.Author != "" {
			ch.ManagingEditor = fmt.Sprintf("%s (%s)", f.Email, f.Author)
		}
	}
	if f.Author != "" || f.Email != "" {
		ch.Owner = &Owner{Name: f.Author, Email: f.Email}
	}
	if f.ImageURL != "" {
		ch.ITunesImage = &ITunesImage{Href: f.ImageURL}
		ch.Image = &Image{URL: f.ImageURL, Title: f.Title, Link: f.BaseURL}
	}
	if f.Category != "" {
		ch.Category = &ITunesCategory{Text: f.Category}
	}
	return &Document{Version: rssVersion, ITunesNS: itunesNS, Channel: ch}
}

func (s *Synthesizer) item(ctx context.Context, a artifact.Artifact) Item {
	title := a.Name.DisplayTitle()
	enclosureURL := EnclosureURL(s.feed.BaseURL, a.FileName)

	length, method := s.prober.Probe(ctx, a.Path, a.Size)
	if method == duration.MethodEstimate {
		s.logger.Debug("duration estimated from size",
			logging.String("artifact", a.FileName),
			logging.Int64("size", a.Size),
		)
	}

	return Item{
		Title:       title,
		Description: title,
		PubDate:     a.ModTime.Format(time.RFC1123Z),
		Enclosure: Enclosure{
			URL:    enclosureURL,
			Length: a.Size,
			Type:   MIMEType(a.Name.Ext),
		},
		GUID:     s.guid(enclosureURL),
		Duration: duration.Format(length),
		Explicit: explicitValue(s.feed.Explicit),
		Category: a.Name.Tag,
	}
}

func (s *Synthesizer) guid(enclosureURL string) GUID {
	if s.feed.GUID == config.GUIDURL {
		return GUID{Value: enclosureURL}
	}
	return GUID{IsPermaLink: "false", Value: EpisodeGUID(enclosureURL)}
}

// EpisodeGUID derives the stable hashed identifier for an enclosure URL.
func EpisodeGUID(enclosureURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(enclosureURL)).String()
}

// EnclosureURL joins the public base URL with the path-escaped filename.
func EnclosureURL(baseURL, fileName string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(fileName)
}

// MIMEType returns the enclosure type for an artifact extension.
func MIMEType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case artifact.ExtWAV:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
