package source

import (
	"net/http"
	"time"

	"articast/internal/config"
)

// FromConfig builds the enabled sources keyed by name.
func FromConfig(cfg *config.Config) map[string]Source {
	client := &http.Client{Timeout: 30 * time.Second}
	sources := make(map[string]Source, 2)
	if cfg.FreshRSS.Enabled {
		sources[config.SourceFreshRSS] = NewFreshRSS(cfg.FreshRSS, client)
	}
	if cfg.Wallabag.Enabled {
		sources[config.SourceWallabag] = NewWallabag(cfg.Wallabag, client)
	}
	return sources
}
