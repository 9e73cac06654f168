package runmode

import (
	"fmt"
	"strings"
)

// Mode names one process behaviour.
type Mode string

const (
	ModeServer     Mode = "server"
	ModeUpdate     Mode = "update"
	ModeUpdateLoop Mode = "update-loop"
	ModeTest       Mode = "test"
	ModeShell      Mode = "shell"
)

// Modes lists the accepted modes in help order.
var Modes = []Mode{ModeServer, ModeUpdate, ModeUpdateLoop, ModeTest, ModeShell}

// ParseMode maps a directive to a Mode. Matching ignores case and
// surrounding whitespace.
func ParseMode(value string) (Mode, error) {
	normalized := Mode(strings.ToLower(strings.TrimSpace(value)))
	for _, mode := range Modes {
		if normalized == mode {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (expected one of %s)", value, modeList())
}

// Resolve picks the mode from the positional argument when present, else
// from the configured mode (which already carries ARTICAST_MODE), else
// server.
func Resolve(arg, configured string) (Mode, error) {
	if strings.TrimSpace(arg) != "" {
		return ParseMode(arg)
	}
	if strings.TrimSpace(configured) != "" {
		return ParseMode(configured)
	}
	return ModeServer, nil
}

func modeList() string {
	names := make([]string, len(Modes))
	for i, mode := range Modes {
		names[i] = string(mode)
	}
	return strings.Join(names, ", ")
}
