package pipeline

import (
	"time"

	"articast/internal/feed"
)

// Report summarises one pipeline run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched   int
	Skipped   int
	Empty     int
	Converted int
	Failed    int

	// Artifacts lists the filenames written during the run.
	Artifacts []string
	// UnavailableCategories names categories whose source could not be read.
	UnavailableCategories []string
	// Demoted lists engines demoted during the run.
	Demoted []string

	// Interrupted is set when the run stopped early on cancellation or
	// run_timeout.
	Interrupted bool

	Feed    feed.Result
	FeedErr error
}

// Attempted is the number of items handed to synthesis.
func (r Report) Attempted() int { return r.Converted + r.Failed }

// AllFailed reports a run where items were attempted and none converted.
func (r Report) AllFailed() bool { return r.Attempted() > 0 && r.Converted == 0 }

// Elapsed returns the wall time of the run.
func (r Report) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
