package domain

import "time"

// PipelineStats holds statistics about one batch run.
type PipelineStats struct {
	SourceID  string
	Fetched   int
	Scored    int
	Skipped   int
	Enriched  int
	Immediate int
	Queued    int
	Errors    int
	Duration  time.Duration
}
