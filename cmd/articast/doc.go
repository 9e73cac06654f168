// Package main hosts the articast CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, selects a run mode for
// `articast run`, and exposes the operator utilities: regenerating the feed
// from a directory, scaffolding and validating configuration, listing engine
// voices and source categories, and inspecting the episode ledger.
//
// Keep this package thin. Behaviour belongs in the internal packages; the
// commands here only wire them to flags and render their results.
package main
