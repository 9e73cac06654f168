package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Synthesis engine identifiers accepted by tts.engine, tts.fallback_engine, and
// per-category overrides.
const (
	EngineEdge   = "edge"
	EngineGTTS   = "gtts"
	EngineOpenAI = "openai"
)

// Source identifiers accepted by categories[].source.
const (
	SourceFreshRSS = "freshrss"
	SourceWallabag = "wallabag"
)

// GUID modes accepted by feed.guid.
const (
	GUIDHash = "hash"
	GUIDURL  = "url"
)

// Paths contains the directories the pipeline and server share.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Feed contains podcast channel metadata.
type Feed struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	BaseURL     string `toml:"base_url"`
	Language    string `toml:"language"`
	Author      string `toml:"author"`
	Email       string `toml:"email"`
	ImageURL    string `toml:"image_url"`
	Category    string `toml:"category"`
	Explicit    bool   `toml:"explicit"`
	Filename    string `toml:"filename"`
	MaxEpisodes int    `toml:"max_episodes"`
	GUID        string `toml:"guid"`
}

// Server contains the static feed server settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Schedule contains the recurring trigger settings.
type Schedule struct {
	Expression string `toml:"expression"`
	RunTimeout int    `toml:"run_timeout"`
}

// HTTPEngine configures the OpenAI-compatible speech endpoint.
type HTTPEngine struct {
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	APIKey            string  `toml:"api_key"`
	Format            string  `toml:"format"`
	Speed             float64 `toml:"speed"`
	RequestsPerMinute int     `toml:"requests_per_minute"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// TTS contains synthesis engine selection and timeouts.
type TTS struct {
	Engine           string     `toml:"engine"`
	Voice            string     `toml:"voice"`
	FallbackEngine   string     `toml:"fallback_engine"`
	FallbackVoice    string     `toml:"fallback_voice"`
	ItemTimeout      int        `toml:"item_timeout"`
	FallbackAttempts int        `toml:"fallback_attempts"`
	EdgeBinary       string     `toml:"edge_binary"`
	GTTSBinary       string     `toml:"gtts_binary"`
	HTTP             HTTPEngine `toml:"http"`
}

// Duration contains the episode duration probing settings.
type Duration struct {
	FFprobeBinary       string `toml:"ffprobe_binary"`
	EstimateBitrateKbps int    `toml:"estimate_bitrate_kbps"`
}

// FreshRSS contains Google Reader API credentials for a FreshRSS instance.
type FreshRSS struct {
	Enabled    bool   `toml:"enabled"`
	URL        string `toml:"url"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	UnreadOnly bool   `toml:"unread_only"`
	Limit      int    `toml:"limit"`
}

// Wallabag contains OAuth2 password-grant credentials for a Wallabag instance.
type Wallabag struct {
	Enabled      bool   `toml:"enabled"`
	URL          string `toml:"url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Category     string `toml:"category"`
	Limit        int    `toml:"limit"`
}

// Category binds a labelled stream of a source to a voice and a per-run limit.
type Category struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
	Stream string `toml:"stream"`
	Limit  int    `toml:"limit"`
	Voice  string `toml:"voice"`
	Engine string `toml:"engine"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for articast.
//
// Configuration sections by subsystem:
//   - Paths: episode output, ledger state, and log directories
//   - Feed: podcast channel metadata and episode cap
//   - Server: static feed server bind address
//   - Schedule: cron expression and whole-run timeout
//   - TTS: primary/fallback engines, voices, and per-item timeout
//   - Duration: ffprobe binary and size-based estimate bitrate
//   - FreshRSS / Wallabag: source credentials
//   - Categories: ordered list of source streams to convert
//   - Logging: log format, level, and retention
type Config struct {
	Mode       string     `toml:"mode"`
	Paths      Paths      `toml:"paths"`
	Feed       Feed       `toml:"feed"`
	Server     Server     `toml:"server"`
	Schedule   Schedule   `toml:"schedule"`
	TTS        TTS        `toml:"tts"`
	Duration   Duration   `toml:"duration"`
	FreshRSS   FreshRSS   `toml:"freshrss"`
	Wallabag   Wallabag   `toml:"wallabag"`
	Categories []Category `toml:"categories"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/articast/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded and before validation.
func Load(path string) (*Config, string, bool, error) {
	environment, err := LoadEnvironment()
	if err != nil {
		return nil, "", false, err
	}
	return LoadWithEnvironment(path, environment)
}

// LoadWithEnvironment is Load with an explicit environment overlay.
func LoadWithEnvironment(path string, environment Environment) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvironment(environment)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("articast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite ledger location inside the state directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the cross-process pipeline lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "articast.lock")
}

// FeedPath returns the absolute location of the feed document.
func (c *Config) FeedPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Feed.Filename)
}

// FeedURL returns the public URL of the feed document.
func (c *Config) FeedURL() string {
	return strings.TrimRight(c.Feed.BaseURL, "/") + "/" + c.Feed.Filename
}

// EngineInUse reports whether any configured choice routes through engine.
func (c *Config) EngineInUse(engine string) bool {
	if c.TTS.Engine == engine || c.TTS.FallbackEngine == engine {
		return true
	}
	for _, cat := range c.Categories {
		if cat.Engine == engine {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
