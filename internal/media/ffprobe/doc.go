// Package ffprobe wraps the ffprobe JSON report for audio files.
//
// Inspect runs ffprobe restricted to audio streams; Result.Duration reads the
// container duration and falls back to the longest audio stream.
package ffprobe
