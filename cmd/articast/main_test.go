package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"articast/internal/config"
	"articast/internal/ledger"
	"articast/internal/source"
	"articast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("ARTICAST_MODE", "")

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "articast", "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: testsupport.BaseDir(cfg)}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "articast.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("mode = \"daemon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "configuration error") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFeedCommandRegeneratesFeed(t *testing.T) {
	env := setupCLITestEnv(t)
	mod := time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)
	testsupport.WriteArtifact(t, env.cfg.Paths.OutputDir, "[Tecnología] How to Brew Coffee_20240105_070000.mp3", 2048, mod)
	testsupport.WriteArtifact(t, env.cfg.Paths.OutputDir, "[Ciencia] Tides_20240106_070000.mp3", 4096, mod.Add(24*time.Hour))

	out, _, err := runCLI(t, []string{"feed"}, env.configPath)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	requireContains(t, out, "Episodes: 2")
	body, err := os.ReadFile(env.cfg.FeedPath())
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	requireContains(t, string(body), "How to Brew Coffee")
}

func TestFeedCommandEmptyDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"feed", "--dir", t.TempDir()}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no mp3 or wav files") {
		t.Fatalf("expected empty directory error, got %v", err)
	}
}

func TestLedgerCommandFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenLedger(t, env.cfg)
	ctx := context.Background()
	records := []ledger.Record{
		{Key: source.Key{Source: "freshrss", ID: "1"}, Status: ledger.StatusConverted, Artifact: "[News] One_20240105_070000.mp3", Title: "One", Category: "News", Engine: "edge"},
		{Key: source.Key{Source: "wallabag", ID: "9"}, Status: ledger.StatusFailed, Title: "Broken", Category: "Wallabag", Engine: "gtts", Error: "synthesis failure: gtts exited 1"},
	}
	for _, rec := range records {
		if _, err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"ledger", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	requireContains(t, out, "wallabag:9")
	requireContains(t, out, "Converted: 1  Failed: 1")
	if strings.Contains(out, "freshrss:1") {
		t.Fatalf("expected converted entry filtered out:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"ledger", "--status", "pending"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestVoicesCommandListsEngineVoices(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteScript(t, env.baseDir, "edge-tts", `cat <<'OUT'
Name                               Gender    ContentCategories      VoicePersonalities
---------------------------------  --------  ---------------------  --------------------
en-US-AriaNeural                   Female    News, Novel            Positive, Confident
es-ES-AlvaroNeural                 Male      General                Friendly, Positive
OUT
`)

	out, _, err := runCLI(t, []string{"voices", "--engine", "edge", "--language", "es"}, env.configPath)
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	requireContains(t, out, "es-ES-AlvaroNeural")
	requireContains(t, out, "1 voices from edge")
	if strings.Contains(out, "en-US-AriaNeural") {
		t.Fatalf("expected language filter to apply:\n%s", out)
	}
}

func TestSourcesCommandWithoutSources(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"sources"}, env.configPath)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	requireContains(t, out, "No sources enabled")
}

func TestRunUpdateWithNoCategories(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", "update"}, env.configPath); err != nil {
		t.Fatalf("run update: %v", err)
	}
	if _, err := os.Stat(env.cfg.LedgerPath()); err != nil {
		t.Fatalf("expected ledger created: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(env.cfg.Paths.LogDir, "articast.log")); err != nil {
		t.Fatalf("expected current log pointer: %v", err)
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run", "daemon"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("expected unknown mode error, got %v", err)
	}
}

func TestParseSources(t *testing.T) {
	cases := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"both", nil, false},
		{"", nil, false},
		{"FreshRSS", []string{"freshrss"}, false},
		{"wallabag,freshrss", []string{"wallabag", "freshrss"}, false},
		{"pocket", nil, true},
	}
	for _, tc := range cases {
		got, err := parseSources(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseSources(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseSources(%q): %v", tc.in, err)
		}
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("parseSources(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
