package feed_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"articast/internal/config"
	"articast/internal/duration"
	"articast/internal/feed"
	"articast/internal/logging"
	"articast/internal/services"
	"articast/internal/testsupport"
)

type fixedProber struct {
	d     time.Duration
	calls int
}

func (p *fixedProber) Probe(context.Context, string, int64) (time.Duration, duration.Method) {
	p.calls++
	return p.d, duration.MethodFFprobe
}

// parsedFeed mirrors the plain RSS fields; itunes elements are checked on
// the raw bytes.
type parsedFeed struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title     string `xml:"title"`
			PubDate   string `xml:"pubDate"`
			Category  string `xml:"category"`
			Enclosure struct {
				URL    string `xml:"url,attr"`
				Length int64  `xml:"length,attr"`
				Type   string `xml:"type,attr"`
			} `xml:"enclosure"`
			GUID struct {
				IsPermaLink string `xml:"isPermaLink,attr"`
				Value       string `xml:",chardata"`
			} `xml:"guid"`
		} `xml:"item"`
	} `xml:"channel"`
}

func newSynthesizer(t *testing.T, cfg *config.Config) (*feed.Synthesizer, *fixedProber) {
	t.Helper()
	prober := &fixedProber{d: 90 * time.Second}
	return feed.NewSynthesizer(cfg, prober, logging.NewNop()), prober
}

func readFeed(t *testing.T, path string) (parsedFeed, []byte) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	var parsed parsedFeed
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("parse feed: %v\n%s", err, raw)
	}
	return parsed, raw
}

func TestGenerateOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := cfg.Paths.OutputDir
	now := time.Now()
	testsupport.WriteArtifact(t, dir, "A_20240101_0700.mp3", 100, now)
	testsupport.WriteArtifact(t, dir, "B_20240103_0700.mp3", 100, now.Add(-48*time.Hour))
	testsupport.WriteArtifact(t, dir, "C_20240102_0700.mp3", 100, now.Add(-time.Hour))

	synth, _ := newSynthesizer(t, cfg)
	result, err := synth.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Episodes != 3 || result.Path != cfg.FeedPath() {
		t.Fatalf("unexpected result %+v", result)
	}

	parsed, _ := readFeed(t, cfg.FeedPath())
	var titles []string
	for _, item := range parsed.Channel.Items {
		titles = append(titles, item.Title)
	}
	if got := strings.Join(titles, ","); got != "B,C,A" {
		t.Fatalf("order = %s, want B,C,A", got)
	}
}

func TestGenerateItemFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Feed.Author = "Ana"
	cfg.Feed.Email = "ana@example.com"
	cfg.Feed.ImageURL = "http://podcast.test/cover.jpg"
	cfg.Feed.Category = "News"
	mod := time.Date(2024, 1, 5, 7, 30, 0, 0, time.UTC)
	name := "[Tecnología] How to Brew Coffee_20240105_070000.mp3"
	testsupport.WriteArtifact(t, cfg.Paths.OutputDir, name, 2048, mod)
	testsupport.WriteArtifact(t, cfg.Paths.OutputDir, "Radio & Más_20240104_0700.wav", 512, mod)

	synth, prober := newSynthesizer(t, cfg)
	if _, err := synth.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if prober.calls != 2 {
		t.Fatalf("expected a probe per artifact, got %d", prober.calls)
	}

	parsed, raw := readFeed(t, cfg.FeedPath())
	if len(parsed.Channel.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(parsed.Channel.Items))
	}
	item := parsed.Channel.Items[0]
	if item.Title != "How to Brew Coffee" {
		t.Fatalf("title = %q", item.Title)
	}
	if item.Category != "Tecnología" {
		t.Fatalf("category = %q", item.Category)
	}
	if item.Enclosure.Type != "audio/mpeg" || item.Enclosure.Length != 2048 {
		t.Fatalf("enclosure = %+v", item.Enclosure)
	}
	wantURL := feed.EnclosureURL("http://podcast.test", name)
	if item.Enclosure.URL != wantURL || strings.Contains(wantURL, " ") {
		t.Fatalf("enclosure url = %q", item.Enclosure.URL)
	}
	if item.GUID.IsPermaLink != "false" || item.GUID.Value != feed.EpisodeGUID(wantURL) {
		t.Fatalf("guid = %+v", item.GUID)
	}
	if item.PubDate != mod.Local().Format(time.RFC1123Z) {
		t.Fatalf("pubDate = %q", item.PubDate)
	}
	if second := parsed.Channel.Items[1]; second.Title != "Radio & Más" || second.Enclosure.Type != "audio/wav" {
		t.Fatalf("second item = %+v", second)
	}

	for _, want := range []string{
		`xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"`,
		"<itunes:duration>00:01:30</itunes:duration>",
		`<itunes:image href="http://podcast.test/cover.jpg"></itunes:image>`,
		"<itunes:email>ana@example.com</itunes:email>",
		`<itunes:category text="News"></itunes:category>`,
		"Radio &amp; Más",
	} {
		if !bytes.Contains(raw, []byte(want)) {
			t.Fatalf("expected %q in feed:\n%s", want, raw)
		}
	}
}

func TestGUIDsStableAcrossRegenerations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteArtifact(t, cfg.Paths.OutputDir, "One_20240101_0700.mp3", 10, time.Time{})
	testsupport.WriteArtifact(t, cfg.Paths.OutputDir, "Two_20240102_0700.mp3", 10, time.Time{})
	synth, _ := newSynthesizer(t, cfg)

	first, err := synth.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := synth.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := range first.Channel.Items {
		if first.Channel.Items[i].GUID != second.Channel.Items[i].GUID {
			t.Fatalf("guid changed for %s", first.Channel.Items[i].Title)
		}
	}
	if first.Channel.Items[0].GUID == first.Channel.Items[1].GUID {
		t.Fatal("expected distinct guids")
	}
}

func TestGUIDURLMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Feed.GUID = config.GUIDURL
	testsupport.WriteArtifact(t, cfg.Paths.OutputDir, "One_20240101_0700.mp3", 10, time.Time{})
	synth, _ := newSynthesizer(t, cfg)

	doc, err := synth.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	guid := doc.Channel.Items[0].GUID
	if guid.IsPermaLink != "" || guid.Value != "http://podcast.test/One_20240101_0700.mp3" {
		t.Fatalf("guid = %+v", guid)
	}
}

func TestMaxEpisodesExcludesOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Feed.MaxEpisodes = 2
	for _, name := range []string{"A_20240101_0700.mp3", "B_20240102_0700.mp3", "C_20240103_0700.mp3"} {
		testsupport.WriteArtifact(t, cfg.Paths.OutputDir, name, 10, time.Time{})
	}
	synth, _ := newSynthesizer(t, cfg)

	result, err := synth.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Episodes != 2 || result.Excluded != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "A_20240101_0700.mp3")); err != nil {
		t.Fatalf("excluded artifact must stay on disk: %v", err)
	}
}

func TestEmptyDirectoryLeavesExistingFeed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	previous := []byte("<rss>previous</rss>")
	if err := os.WriteFile(cfg.FeedPath(), previous, 0o644); err != nil {
		t.Fatalf("seed feed: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, "notes.txt"), 10)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, ".partial.mp3.tmp-1"), 10)

	synth, _ := newSynthesizer(t, cfg)
	_, err := synth.Generate(context.Background())
	if !errors.Is(err, feed.ErrNoEpisodes) || !errors.Is(err, services.ErrFeedSynthesis) {
		t.Fatalf("expected no-episodes feed error, got %v", err)
	}
	got, err := os.ReadFile(cfg.FeedPath())
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if !bytes.Equal(got, previous) {
		t.Fatalf("existing feed modified: %q", got)
	}
}

func TestGenerateReplacesFeedAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteArtifact(t, cfg.Paths.OutputDir, "One_20240101_0700.mp3", 10, time.Time{})
	if err := os.WriteFile(cfg.FeedPath(), []byte("old"), 0o644); err != nil {
		t.Fatalf("seed feed: %v", err)
	}
	synth, _ := newSynthesizer(t, cfg)
	if _, err := synth.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
	parsed, _ := readFeed(t, cfg.FeedPath())
	if parsed.Channel.Title != cfg.Feed.Title || len(parsed.Channel.Items) != 1 {
		t.Fatalf("unexpected feed %+v", parsed.Channel)
	}
}

func TestWithOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	other := t.TempDir()
	testsupport.WriteArtifact(t, other, "Elsewhere_20240101_0700.mp3", 10, time.Time{})

	synth, _ := newSynthesizer(t, cfg)
	result, err := synth.WithOutputDir(other).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Path != filepath.Join(other, cfg.Feed.Filename) {
		t.Fatalf("feed path = %s", result.Path)
	}
	if _, err := os.Stat(cfg.FeedPath()); !os.IsNotExist(err) {
		t.Fatalf("configured output dir should be untouched, stat err=%v", err)
	}
}
