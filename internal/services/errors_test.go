package services_test

import (
	"errors"
	"strings"
	"testing"

	"articast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrSynthesis, "edge", "synthesize", "edge-tts exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"edge", "synthesize", "edge-tts exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFatalClassification(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{services.Wrap(services.ErrConfiguration, "config", "load", "bad", nil), true},
		{services.Wrap(services.ErrServerBind, "server", "listen", "in use", nil), true},
		{services.Wrap(services.ErrSourceUnavailable, "freshrss", "list", "503", nil), false},
		{services.Wrap(services.ErrLedgerWrite, "ledger", "record", "disk full", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.Fatal(tc.err); got != tc.fatal {
			t.Fatalf("Fatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}

func TestHintDefaultsForUnknownErrors(t *testing.T) {
	if hint := services.Hint(errors.New("mystery")); hint != "check logs for details" {
		t.Fatalf("unexpected hint: %q", hint)
	}
	if hint := services.Hint(services.Wrap(services.ErrLedgerWrite, "", "", "", nil)); !strings.Contains(hint, "state directory") {
		t.Fatalf("unexpected ledger hint: %q", hint)
	}
}
