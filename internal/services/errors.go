package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure markers. Every error that crosses a component boundary wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSynthesis         = errors.New("synthesis failure")
	ErrLedgerWrite       = errors.New("ledger write failure")
	ErrFeedSynthesis     = errors.New("feed synthesis error")
	ErrServerBind        = errors.New("server bind error")
	ErrTimeout           = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrSynthesis
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should end the process rather than a single item
// or category.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrServerBind)
}

// Hint returns a short operator-facing next step for a classified error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "fix the configuration file and restart (articast config validate)"
	case errors.Is(err, ErrSourceUnavailable):
		return "check source URL, credentials, and network reachability (articast run test)"
	case errors.Is(err, ErrSynthesis):
		return "check the synthesis engine installation and network access"
	case errors.Is(err, ErrLedgerWrite):
		return "check free space and permissions of the state directory"
	case errors.Is(err, ErrFeedSynthesis):
		return "check the output directory contents and permissions"
	case errors.Is(err, ErrServerBind):
		return "choose a free server.bind address or stop the process holding it"
	case errors.Is(err, ErrTimeout):
		return "raise the timeout or investigate the slow dependency"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
