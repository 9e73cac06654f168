package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment holds values read from process environment variables. Secrets
// usually arrive this way in container deployments so they stay out of the
// TOML file.
type Environment struct {
	Mode             string `env:"ARTICAST_MODE"`
	BaseURL          string `env:"ARTICAST_BASE_URL"`
	OutputDir        string `env:"ARTICAST_OUTPUT_DIR"`
	FreshRSSURL      string `env:"FRESHRSS_URL"`
	FreshRSSUsername string `env:"FRESHRSS_USERNAME"`
	FreshRSSPassword string `env:"FRESHRSS_PASSWORD"`
	WallabagURL      string `env:"WALLABAG_URL"`
	WallabagClientID string `env:"WALLABAG_CLIENT_ID"`
	WallabagSecret   string `env:"WALLABAG_CLIENT_SECRET"`
	WallabagUsername string `env:"WALLABAG_USERNAME"`
	WallabagPassword string `env:"WALLABAG_PASSWORD"`
	TTSAPIKey        string `env:"TTS_API_KEY"`
}

// LoadEnvironment reads the process environment.
func LoadEnvironment() (Environment, error) {
	environment, err := env.ParseAs[Environment]()
	if err != nil {
		return Environment{}, fmt.Errorf("parse environment: %w", err)
	}
	return environment, nil
}

// EnvironmentFrom parses a fixed set of variables instead of the process
// environment.
func EnvironmentFrom(vars map[string]string) (Environment, error) {
	var environment Environment
	if err := env.ParseWithOptions(&environment, env.Options{Environment: vars}); err != nil {
		return Environment{}, fmt.Errorf("parse environment: %w", err)
	}
	return environment, nil
}

func (c *Config) applyEnvironment(e Environment) {
	override := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	override(&c.Mode, e.Mode)
	override(&c.Feed.BaseURL, e.BaseURL)
	override(&c.Paths.OutputDir, e.OutputDir)
	override(&c.FreshRSS.URL, e.FreshRSSURL)
	override(&c.FreshRSS.Username, e.FreshRSSUsername)
	override(&c.FreshRSS.Password, e.FreshRSSPassword)
	override(&c.Wallabag.URL, e.WallabagURL)
	override(&c.Wallabag.ClientID, e.WallabagClientID)
	override(&c.Wallabag.ClientSecret, e.WallabagSecret)
	override(&c.Wallabag.Username, e.WallabagUsername)
	override(&c.Wallabag.Password, e.WallabagPassword)
	override(&c.TTS.HTTP.APIKey, e.TTSAPIKey)
}
