package runmode

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"articast/internal/config"
	"articast/internal/deps"
	"articast/internal/logging"
	"articast/internal/preflight"
)

const currentLogName = "articast.log"

// Bootstrap creates the process logger for runID, repoints articast.log at
// the new run log, prunes logs past retention, and records which engines
// and binaries the process will use.
func Bootstrap(cfg *config.Config, runID string) (*slog.Logger, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("config is required")
	}
	logger, logPath, err := logging.NewFromConfig(cfg, runID)
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", currentLogName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.ProcessLogs(cfg.Paths.LogDir, logPath))
	logDependencySnapshot(logger, cfg)
	return logger, logPath, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, currentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String(logging.FieldEngine, cfg.TTS.Engine),
		logging.String("fallback_engine", cfg.TTS.FallbackEngine),
		logging.Bool("freshrss_enabled", cfg.FreshRSS.Enabled),
		logging.Bool("wallabag_enabled", cfg.Wallabag.Enabled),
		logging.Int("categories", len(cfg.Categories)),
		logging.Bool("speech_api_key_present", strings.TrimSpace(cfg.TTS.HTTP.APIKey) != ""),
	}
	for _, status := range deps.CheckBinaries(preflight.Requirements(cfg)) {
		key := strings.ReplaceAll(status.Name, "-", "_")
		attrs = append(attrs, logging.Bool(key+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
