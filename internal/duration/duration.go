// Package duration measures episode lengths for the feed.
//
// Probe walks a chain of progressively coarser methods so a missing tool
// only costs precision: ffprobe when installed, then an MP3 frame scan or a
// WAV header read, then file size divided by a configured bitrate.
package duration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tcolgate/mp3"

	"articast/internal/config"
	"articast/internal/logging"
	"articast/internal/media/ffprobe"
)

// Method names the technique that produced a duration.
type Method string

const (
	MethodFFprobe  Method = "ffprobe"
	MethodFrames   Method = "frames"
	MethodEstimate Method = "estimate"
)

const defaultBitrateKbps = 140

// Prober computes durations. It is safe for concurrent use.
type Prober struct {
	binary      string
	bitrateKbps int
	logger      *slog.Logger

	once        sync.Once
	ffprobePath string
}

// NewProber builds a prober from the duration settings.
func NewProber(cfg config.Duration, logger *slog.Logger) *Prober {
	bitrate := cfg.EstimateBitrateKbps
	if bitrate <= 0 {
		bitrate = defaultBitrateKbps
	}
	return &Prober{
		binary:      strings.TrimSpace(cfg.FFprobeBinary),
		bitrateKbps: bitrate,
		logger:      logging.NewComponentLogger(logger, "duration"),
	}
}

// Probe returns the duration of the file at path and the method that
// produced it. size is the file size in bytes, used by the estimate.
func (p *Prober) Probe(ctx context.Context, path string, size int64) (time.Duration, Method) {
	if bin := p.resolveFFprobe(); bin != "" {
		result, err := ffprobe.Inspect(ctx, bin, path)
		if err == nil && result.Duration() > 0 {
			return result.Duration(), MethodFFprobe
		}
		p.logger.Debug("ffprobe duration unavailable", logging.String("artifact", filepath.Base(path)), logging.Error(err))
	}

	if d, err := scan(path); err == nil && d > 0 {
		return d, MethodFrames
	} else if err != nil {
		p.logger.Debug("frame scan failed", logging.String("artifact", filepath.Base(path)), logging.Error(err))
	}

	return Estimate(size, p.bitrateKbps), MethodEstimate
}

func (p *Prober) resolveFFprobe() string {
	p.once.Do(func() {
		binary := p.binary
		if binary == "" {
			binary = "ffprobe"
		}
		path, err := exec.LookPath(binary)
		if err != nil {
			p.logger.Info("ffprobe not found; using frame scan and size estimates",
				logging.String("binary", binary))
			return
		}
		p.ffprobePath = path
	})
	return p.ffprobePath
}

// Estimate converts a byte size to a duration at bitrateKbps.
func Estimate(size int64, bitrateKbps int) time.Duration {
	if size <= 0 || bitrateKbps <= 0 {
		return 0
	}
	bytesPerSecond := float64(bitrateKbps) * 1000 / 8
	return time.Duration(float64(size) / bytesPerSecond * float64(time.Second))
}

// Format renders d as HH:MM:SS, rounding to the nearest second.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func scan(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wavDuration(f)
	default:
		return mp3Duration(f)
	}
}

func mp3Duration(r io.Reader) (time.Duration, error) {
	dec := mp3.NewDecoder(r)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			if frames > 0 {
				break
			}
			return 0, fmt.Errorf("decode mp3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return total, nil
}
