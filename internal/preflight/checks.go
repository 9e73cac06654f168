package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"articast/internal/config"
	"articast/internal/deps"
	"articast/internal/synth"
)

// CheckConfig reports whether a configuration file was found and parsed.
// Loading already failed when it could not be parsed, so only presence is
// checked here.
func CheckConfig(path string, exists bool) Result {
	const name = "Configuration"
	if path == "" {
		return Result{Name: name, Detail: "no configuration path"}
	}
	if !exists {
		return Result{Name: name, Detail: fmt.Sprintf("%s (not found; run 'articast config init')", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (parsed)", path)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDNS resolves the target host.
func CheckDNS(ctx context.Context, resolver *net.Resolver, target Target) Result {
	name := target.Name + " DNS"
	host := hostOf(target.URL)
	if host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", target.URL)}
	}
	if ip := net.ParseIP(host); ip != nil {
		return Result{Name: name, Passed: true, Detail: host + " (literal address)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	addrs, err := resolver.LookupHost(checkCtx, host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (lookup failed: %v)", host, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s → %s", host, strings.Join(addrs, ", "))}
}

// CheckHTTPS issues a HEAD request to the target. Any HTTP answer counts as
// reachable; only transport failures fail the check.
func CheckHTTPS(ctx context.Context, client *http.Client, target Target) Result {
	name := target.Name + " reachability"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, target.URL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", target.URL)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	_ = resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d)", target.URL, resp.StatusCode)}
}

// CheckEngine lists the engine's voices as a capability probe.
func CheckEngine(ctx context.Context, engines synth.Registry, engineName string) Result {
	name := "Engine " + engineName
	engine, err := engines.Get(engineName)
	if err != nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	voices, err := engine.ListVoices(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	if len(voices) == 0 {
		return Result{Name: name, Detail: "engine answered with no voices"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d voices", len(voices))}
}

// Requirements lists the binaries the configuration needs. ffprobe is
// optional because durations fall back to frame scans and estimates.
func Requirements(cfg *config.Config) []deps.Requirement {
	var requirements []deps.Requirement
	if cfg.EngineInUse(config.EngineEdge) {
		requirements = append(requirements, deps.Requirement{
			Name:        "edge-tts",
			Command:     cfg.TTS.EdgeBinary,
			Description: "Required for the edge engine",
		})
	}
	if cfg.EngineInUse(config.EngineGTTS) {
		requirements = append(requirements, deps.Requirement{
			Name:        "gtts-cli",
			Command:     cfg.TTS.GTTSBinary,
			Description: "Required for the gtts engine",
		})
	}
	return append(requirements, deps.Requirement{
		Name:        "ffprobe",
		Command:     cfg.Duration.FFprobeBinary,
		Description: "Precise episode durations",
		Optional:    true,
	})
}

// CheckSystemDeps resolves the binaries from Requirements.
func CheckSystemDeps(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:     "Binary " + status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	return results
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
