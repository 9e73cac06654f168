package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResultDuration(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "61.5"}},
		Format:  Format{Duration: "62.25", BitRate: "128000"},
	}
	if got := result.Duration(); got != 62250*time.Millisecond {
		t.Fatalf("unexpected duration %s", got)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.BitRate() != 128000 {
		t.Fatalf("unexpected bitrate %d", result.BitRate())
	}
}

func TestResultDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "10"},
			{CodecType: "audio", Duration: "12.5"},
			{CodecType: "data", Duration: "99"},
		},
		Format: Format{Duration: "N/A"},
	}
	if got := result.Duration(); got != 12500*time.Millisecond {
		t.Fatalf("unexpected duration %s", got)
	}
	if got := (Result{Format: Format{Duration: "bad"}}).Duration(); got != 0 {
		t.Fatalf("expected zero for invalid duration, got %s", got)
	}
}

func TestInspectParsesOutput(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n{\"streams\":[{\"index\":0,\"codec_type\":\"audio\",\"codec_name\":\"mp3\"}],\"format\":{\"duration\":\"3.000000\"}}\nJSON\n"
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	result, err := Inspect(context.Background(), binary, "/tmp/episode.mp3")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Duration() != 3*time.Second || result.Streams[0].CodecName != "mp3" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInspectReportsFailure(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\necho 'Invalid data found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(context.Background(), binary, "/tmp/x.mp3"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Inspect(context.Background(), binary, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
