package preflight

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"articast/internal/config"
	"articast/internal/synth"
)

// Result reports the outcome of a single check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options supplies what the checks inspect.
type Options struct {
	Config       *config.Config
	ConfigPath   string
	ConfigExists bool
	Engines      synth.Registry
	// Resolver and HTTPClient default to net.DefaultResolver and a client
	// with a 10 second timeout.
	Resolver   *net.Resolver
	HTTPClient *http.Client
}

// Target is a remote host a deployment depends on.
type Target struct {
	Name string
	URL  string
}

const (
	edgeSpeechURL  = "https://speech.platform.bing.com"
	gttsServiceURL = "https://translate.google.com"
)

// RunAll executes every applicable check in display order.
func RunAll(ctx context.Context, opts Options) []Result {
	cfg := opts.Config
	if cfg == nil {
		return []Result{{Name: "Configuration", Detail: "configuration unavailable"}}
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	results := []Result{
		CheckConfig(opts.ConfigPath, opts.ConfigExists),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	for _, target := range Targets(cfg) {
		results = append(results, CheckDNS(ctx, resolver, target))
		results = append(results, CheckHTTPS(ctx, client, target))
	}

	checked := map[string]bool{}
	for _, name := range []string{cfg.TTS.Engine, cfg.TTS.FallbackEngine} {
		if name == "" || checked[name] {
			continue
		}
		checked[name] = true
		results = append(results, CheckEngine(ctx, opts.Engines, name))
	}

	results = append(results, CheckSystemDeps(cfg)...)
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// Targets lists the remote hosts the configuration routes through.
func Targets(cfg *config.Config) []Target {
	var targets []Target
	if cfg.FreshRSS.Enabled && cfg.FreshRSS.URL != "" {
		targets = append(targets, Target{Name: "FreshRSS", URL: cfg.FreshRSS.URL})
	}
	if cfg.Wallabag.Enabled && cfg.Wallabag.URL != "" {
		targets = append(targets, Target{Name: "Wallabag", URL: cfg.Wallabag.URL})
	}
	if cfg.EngineInUse(config.EngineEdge) {
		targets = append(targets, Target{Name: "Edge TTS", URL: edgeSpeechURL})
	}
	if cfg.EngineInUse(config.EngineGTTS) {
		targets = append(targets, Target{Name: "Google TTS", URL: gttsServiceURL})
	}
	if cfg.EngineInUse(config.EngineOpenAI) && cfg.TTS.HTTP.BaseURL != "" {
		targets = append(targets, Target{Name: "Speech API", URL: cfg.TTS.HTTP.BaseURL})
	}
	return targets
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
