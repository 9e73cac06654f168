// Package services defines shared utilities consumed by the pipeline, the
// source adapters, and the synthesis engines.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, category names, and item keys for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     local (one item or category) or fatal (configuration, server bind).
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
