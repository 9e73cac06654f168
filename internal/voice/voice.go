// Package voice maps category labels to synthesis engine and voice choices.
package voice

import (
	"strings"

	"articast/internal/config"
)

// Choice selects the engine and voice used for one item.
type Choice struct {
	Engine string
	Voice  string
}

// IsZero reports whether neither engine nor voice is set.
func (c Choice) IsZero() bool { return c.Engine == "" && c.Voice == "" }

func (c Choice) String() string {
	return c.Engine + "/" + c.Voice
}

// Resolver is a pure lookup from category label to Choice.
type Resolver struct {
	fallback   Choice
	categories map[string]Choice
}

// NewResolver builds a resolver. Category entries that set only one of engine
// or voice inherit the other from def.
func NewResolver(def Choice, categories map[string]Choice) *Resolver {
	r := &Resolver{fallback: def, categories: make(map[string]Choice, len(categories))}
	for name, choice := range categories {
		name = strings.TrimSpace(name)
		if name == "" || choice.IsZero() {
			continue
		}
		if choice.Engine == "" {
			choice.Engine = def.Engine
		}
		if choice.Voice == "" {
			choice.Voice = def.Voice
		}
		r.categories[name] = choice
	}
	return r
}

// FromConfig builds a resolver from tts defaults and per-category overrides.
func FromConfig(cfg *config.Config) *Resolver {
	def := Choice{Engine: cfg.TTS.Engine, Voice: cfg.TTS.Voice}
	overrides := make(map[string]Choice, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		overrides[cat.Name] = Choice{Engine: cat.Engine, Voice: cat.Voice}
	}
	return NewResolver(def, overrides)
}

// Resolve returns the choice for category, or the default when the category
// is empty or unconfigured.
func (r *Resolver) Resolve(category string) Choice {
	if r == nil {
		return Choice{}
	}
	if choice, ok := r.categories[strings.TrimSpace(category)]; ok {
		return choice
	}
	return r.fallback
}

// Default returns the deployment-wide choice.
func (r *Resolver) Default() Choice {
	if r == nil {
		return Choice{}
	}
	return r.fallback
}
