package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/adhocore/gronx"
	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMode(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateDuration(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMode() error {
	switch c.Mode {
	case "server", "update", "update-loop", "test", "shell":
		return nil
	default:
		return fmt.Errorf("mode %q is not one of server, update, update-loop, test, shell", c.Mode)
	}
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.Title == "" {
		return errors.New("feed.title must be set")
	}
	if err := validateHTTPURL("feed.base_url", c.Feed.BaseURL); err != nil {
		return err
	}
	if _, err := language.Parse(c.Feed.Language); err != nil {
		return fmt.Errorf("feed.language %q is not a valid language tag: %w", c.Feed.Language, err)
	}
	if c.Feed.ImageURL != "" {
		if err := validateHTTPURL("feed.image_url", c.Feed.ImageURL); err != nil {
			return err
		}
	}
	if strings.ContainsAny(c.Feed.Filename, `/\`) || strings.HasPrefix(c.Feed.Filename, ".") {
		return fmt.Errorf("feed.filename %q must be a plain file name", c.Feed.Filename)
	}
	if c.Feed.MaxEpisodes < 0 {
		return errors.New("feed.max_episodes must be >= 0")
	}
	switch c.Feed.GUID {
	case GUIDHash, GUIDURL:
	default:
		return fmt.Errorf("feed.guid %q must be %q or %q", c.Feed.GUID, GUIDHash, GUIDURL)
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if !gronx.New().IsValid(c.Schedule.Expression) {
		return fmt.Errorf("schedule.expression %q is not a valid cron expression", c.Schedule.Expression)
	}
	return ensurePositiveMap(map[string]int{
		"schedule.run_timeout": c.Schedule.RunTimeout,
	})
}

func (c *Config) validateTTS() error {
	if !knownEngine(c.TTS.Engine) {
		return fmt.Errorf("tts.engine %q must be one of edge, gtts, openai", c.TTS.Engine)
	}
	if c.TTS.FallbackEngine != "" && !knownEngine(c.TTS.FallbackEngine) {
		return fmt.Errorf("tts.fallback_engine %q must be one of edge, gtts, openai, none", c.TTS.FallbackEngine)
	}
	if c.TTS.FallbackEngine != "" && c.TTS.FallbackEngine != c.TTS.Engine && c.TTS.FallbackVoice == "" {
		return errors.New("tts.fallback_voice must be set when tts.fallback_engine is configured")
	}
	if err := ensurePositiveMap(map[string]int{
		"tts.item_timeout":      c.TTS.ItemTimeout,
		"tts.fallback_attempts": c.TTS.FallbackAttempts,
	}); err != nil {
		return err
	}
	if c.EngineInUse(EngineOpenAI) {
		if err := validateHTTPURL("tts.http.base_url", c.TTS.HTTP.BaseURL); err != nil {
			return err
		}
		if c.TTS.HTTP.Format != "mp3" && c.TTS.HTTP.Format != "wav" {
			return fmt.Errorf("tts.http.format %q must be mp3 or wav", c.TTS.HTTP.Format)
		}
		if c.TTS.HTTP.RequestsPerMinute < 0 {
			return errors.New("tts.http.requests_per_minute must be >= 0")
		}
		if c.TTS.HTTP.TimeoutSeconds <= 0 {
			return errors.New("tts.http.timeout_seconds must be positive")
		}
	}
	return nil
}

func (c *Config) validateDuration() error {
	return ensurePositiveMap(map[string]int{
		"duration.estimate_bitrate_kbps": c.Duration.EstimateBitrateKbps,
	})
}

func (c *Config) validateSources() error {
	if c.FreshRSS.Enabled {
		if err := validateHTTPURL("freshrss.url", c.FreshRSS.URL); err != nil {
			return err
		}
		if c.FreshRSS.Username == "" || c.FreshRSS.Password == "" {
			return errors.New("freshrss.username and freshrss.password must be set when freshrss.enabled is true (or set FRESHRSS_USERNAME/FRESHRSS_PASSWORD)")
		}
		if c.FreshRSS.Limit < 0 {
			return errors.New("freshrss.limit must be >= 0")
		}
	}
	if c.Wallabag.Enabled {
		if err := validateHTTPURL("wallabag.url", c.Wallabag.URL); err != nil {
			return err
		}
		if c.Wallabag.ClientID == "" || c.Wallabag.ClientSecret == "" {
			return errors.New("wallabag.client_id and wallabag.client_secret must be set when wallabag.enabled is true")
		}
		if c.Wallabag.Username == "" || c.Wallabag.Password == "" {
			return errors.New("wallabag.username and wallabag.password must be set when wallabag.enabled is true")
		}
		if c.Wallabag.Limit < 0 {
			return errors.New("wallabag.limit must be >= 0")
		}
	}
	return nil
}

func (c *Config) validateCategories() error {
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		field := fmt.Sprintf("categories[%d]", i)
		if cat.Name == "" {
			return fmt.Errorf("%s.name must be set", field)
		}
		if strings.ContainsAny(cat.Name, "[]/\\") {
			return fmt.Errorf("%s.name %q must not contain brackets or slashes", field, cat.Name)
		}
		switch cat.Source {
		case SourceFreshRSS:
			if !c.FreshRSS.Enabled {
				return fmt.Errorf("%s (%s) uses freshrss but freshrss.enabled is false", field, cat.Name)
			}
		case SourceWallabag:
			if !c.Wallabag.Enabled {
				return fmt.Errorf("%s (%s) uses wallabag but wallabag.enabled is false", field, cat.Name)
			}
		default:
			return fmt.Errorf("%s.source %q must be freshrss or wallabag", field, cat.Source)
		}
		if cat.Engine != "" && !knownEngine(cat.Engine) {
			return fmt.Errorf("%s.engine %q must be one of edge, gtts, openai", field, cat.Engine)
		}
		if cat.Engine != "" && cat.Engine != c.TTS.Engine && strings.TrimSpace(cat.Voice) == "" {
			return fmt.Errorf("%s.voice must be set when %s.engine differs from tts.engine", field, field)
		}
		if cat.Limit < 0 {
			return fmt.Errorf("%s.limit must be >= 0", field)
		}
		key := cat.Source + "\x00" + cat.Name
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%s duplicates category %q for source %s", field, cat.Name, cat.Source)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func knownEngine(name string) bool {
	switch name {
	case EngineEdge, EngineGTTS, EngineOpenAI:
		return true
	default:
		return false
	}
}

func validateHTTPURL(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s %q must be an absolute http(s) URL", field, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
