package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = defaultMode
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeed()
	c.normalizeSchedule()
	c.normalizeTTS()
	c.normalizeDuration()
	c.normalizeSources()
	c.normalizeCategories()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizeFeed() {
	c.Feed.Title = strings.TrimSpace(c.Feed.Title)
	c.Feed.Description = strings.TrimSpace(c.Feed.Description)
	c.Feed.BaseURL = strings.TrimRight(strings.TrimSpace(c.Feed.BaseURL), "/")
	c.Feed.Language = strings.TrimSpace(c.Feed.Language)
	if c.Feed.Language == "" {
		c.Feed.Language = defaultFeedLanguage
	}
	c.Feed.Author = strings.TrimSpace(c.Feed.Author)
	c.Feed.Email = strings.TrimSpace(c.Feed.Email)
	c.Feed.ImageURL = strings.TrimSpace(c.Feed.ImageURL)
	c.Feed.Category = strings.TrimSpace(c.Feed.Category)
	c.Feed.Filename = strings.TrimSpace(c.Feed.Filename)
	if c.Feed.Filename == "" {
		c.Feed.Filename = defaultFeedFilename
	}
	c.Feed.GUID = strings.ToLower(strings.TrimSpace(c.Feed.GUID))
	if c.Feed.GUID == "" {
		c.Feed.GUID = GUIDHash
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Expression = strings.Join(strings.Fields(c.Schedule.Expression), " ")
	if c.Schedule.Expression == "" {
		c.Schedule.Expression = defaultScheduleExpression
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Engine = strings.ToLower(strings.TrimSpace(c.TTS.Engine))
	if c.TTS.Engine == "" {
		c.TTS.Engine = defaultTTSEngine
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	c.TTS.FallbackEngine = strings.ToLower(strings.TrimSpace(c.TTS.FallbackEngine))
	if c.TTS.FallbackEngine == "none" {
		c.TTS.FallbackEngine = ""
	}
	c.TTS.FallbackVoice = strings.TrimSpace(c.TTS.FallbackVoice)
	if c.TTS.FallbackAttempts == 0 {
		c.TTS.FallbackAttempts = defaultFallbackAttempts
	}
	if strings.TrimSpace(c.TTS.EdgeBinary) == "" {
		c.TTS.EdgeBinary = defaultEdgeBinary
	}
	if strings.TrimSpace(c.TTS.GTTSBinary) == "" {
		c.TTS.GTTSBinary = defaultGTTSBinary
	}
	c.TTS.HTTP.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.HTTP.BaseURL), "/")
	c.TTS.HTTP.Model = strings.TrimSpace(c.TTS.HTTP.Model)
	c.TTS.HTTP.APIKey = strings.TrimSpace(c.TTS.HTTP.APIKey)
	c.TTS.HTTP.Format = strings.ToLower(strings.TrimSpace(c.TTS.HTTP.Format))
	if c.TTS.HTTP.Format == "" {
		c.TTS.HTTP.Format = defaultHTTPFormat
	}
	if c.TTS.HTTP.Speed == 0 {
		c.TTS.HTTP.Speed = defaultHTTPSpeed
	}
	if c.TTS.HTTP.TimeoutSeconds == 0 {
		c.TTS.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (c *Config) normalizeDuration() {
	if strings.TrimSpace(c.Duration.FFprobeBinary) == "" {
		c.Duration.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Duration.EstimateBitrateKbps == 0 {
		c.Duration.EstimateBitrateKbps = defaultEstimateBitrateKbps
	}
}

func (c *Config) normalizeSources() {
	c.FreshRSS.URL = strings.TrimRight(strings.TrimSpace(c.FreshRSS.URL), "/")
	c.FreshRSS.Username = strings.TrimSpace(c.FreshRSS.Username)
	if c.FreshRSS.Limit == 0 {
		c.FreshRSS.Limit = defaultSourceLimit
	}
	c.Wallabag.URL = strings.TrimRight(strings.TrimSpace(c.Wallabag.URL), "/")
	c.Wallabag.ClientID = strings.TrimSpace(c.Wallabag.ClientID)
	c.Wallabag.Username = strings.TrimSpace(c.Wallabag.Username)
	c.Wallabag.Category = strings.TrimSpace(c.Wallabag.Category)
	if c.Wallabag.Category == "" {
		c.Wallabag.Category = defaultWallabagCategory
	}
	if c.Wallabag.Limit == 0 {
		c.Wallabag.Limit = defaultSourceLimit
	}
}

// normalizeCategories fills per-source defaults and adds the implicit
// categories: the FreshRSS reading list when FreshRSS has none configured, and
// the Wallabag unread list when Wallabag has none configured.
func (c *Config) normalizeCategories() {
	hasSource := map[string]bool{}
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		cat.Source = strings.ToLower(strings.TrimSpace(cat.Source))
		if cat.Source == "" {
			cat.Source = SourceFreshRSS
		}
		cat.Stream = strings.TrimSpace(cat.Stream)
		cat.Voice = strings.TrimSpace(cat.Voice)
		cat.Engine = strings.ToLower(strings.TrimSpace(cat.Engine))
		switch cat.Source {
		case SourceFreshRSS:
			if cat.Stream == "" && cat.Name != "" {
				cat.Stream = "user/-/label/" + cat.Name
			}
			if cat.Limit == 0 {
				cat.Limit = c.FreshRSS.Limit
			}
		case SourceWallabag:
			if cat.Limit == 0 {
				cat.Limit = c.Wallabag.Limit
			}
		}
		hasSource[cat.Source] = true
	}
	if c.FreshRSS.Enabled && !hasSource[SourceFreshRSS] {
		c.Categories = append(c.Categories, Category{
			Name:   defaultReadingListCategory,
			Source: SourceFreshRSS,
			Stream: "user/-/state/com.google/reading-list",
			Limit:  c.FreshRSS.Limit,
		})
	}
	if c.Wallabag.Enabled && !hasSource[SourceWallabag] {
		c.Categories = append(c.Categories, Category{
			Name:   c.Wallabag.Category,
			Source: SourceWallabag,
			Limit:  c.Wallabag.Limit,
		})
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
