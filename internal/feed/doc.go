// Package feed renders the podcast feed from the audio files in the output
// directory.
//
// The feed is a pure function of the artifact set and the [feed] settings:
// nothing is read from the ledger, and every generation rewrites the whole
// document through an atomic rename so the server never serves a partial
// file. Episode order, titles, and timestamps come from the artifact
// filenames (see internal/artifact); durations come from internal/duration.
package feed
