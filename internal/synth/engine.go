package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"articast/internal/config"
	"articast/internal/services"
)

// Engine is one speech synthesis backend.
type Engine interface {
	Name() string
	// Format is the container extension of the audio Synthesize returns.
	Format() string
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Voice describes one voice an engine offers.
type Voice struct {
	ID       string
	Language string
	Gender   string
	Name     string
}

// Registry holds the engines a deployment can route to, keyed by name.
type Registry map[string]Engine

// NewRegistry builds the engines described by cfg. The HTTP engine is only
// registered when a base URL is configured.
func NewRegistry(cfg config.TTS) Registry {
	reg := Registry{
		config.EngineEdge: NewEdgeEngine(cfg.EdgeBinary),
		config.EngineGTTS: NewGTTSEngine(cfg.GTTSBinary),
	}
	if strings.TrimSpace(cfg.HTTP.BaseURL) != "" {
		reg[config.EngineOpenAI] = NewOpenAIEngine(OpenAIConfig{
			BaseURL:           cfg.HTTP.BaseURL,
			Model:             cfg.HTTP.Model,
			APIKey:            cfg.HTTP.APIKey,
			Format:            cfg.HTTP.Format,
			Speed:             cfg.HTTP.Speed,
			RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
			Timeout:           time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		})
	}
	return reg
}

// Get returns the named engine or a synthesis failure when it is unknown.
func (r Registry) Get(name string) (Engine, error) {
	if engine, ok := r[name]; ok && engine != nil {
		return engine, nil
	}
	return nil, services.Wrap(services.ErrSynthesis, "synth", "lookup", fmt.Sprintf("engine %q is not configured", name), nil)
}

// Names returns the registered engine names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func failure(engine, operation, message string, err error) error {
	return services.Wrap(services.ErrSynthesis, engine, operation, message, err)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "…"
}
