// Package artifact owns the episode filename grammar and the directory scan
// that the feed synthesizer builds on.
//
// Generated names look like "[Category] Title_20240105_070000.mp3": an
// optional bracketed category tag, the sanitised title, an optional
// timestamp suffix with an optional "-N" disambiguator, and the container
// extension. Parse never fails; names written by hand simply yield fewer
// parts.
package artifact
