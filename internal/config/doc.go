// Package config loads, normalizes, and validates articast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays environment variables such as
// FRESHRSS_PASSWORD or ARTICAST_MODE. The Config type centralizes every knob
// the pipeline, feed server, and CLI need: source credentials, the ordered
// category list with per-category voices, synthesis engines, and feed
// metadata.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, implicit categories, and clear validation errors.
package config
