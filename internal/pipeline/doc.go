// Package pipeline converts new source items into audio artifacts and
// regenerates the feed.
//
// A run holds an exclusive file lock on <state_dir>/articast.lock for its
// whole duration, so a second run in this or any other process is refused
// with ErrRunInProgress instead of racing on the ledger and the output
// directory. Categories are processed in configuration order and items
// oldest first, one synthesis call at a time. Item and category failures
// stay local; only a ledger write failure stops the run early. The feed is
// regenerated after every run, including runs that time out, using a
// context detached from the run's cancellation.
package pipeline
