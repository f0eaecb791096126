package pipeline

import "time"

// StageTiming is the wall-clock duration of one pipeline stage. Stage
// timings are always measured in real time, even under a virtual clock.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// RunReport summarizes one pipeline run for logging and the status
// surface. StartedAt is the effective (possibly virtual) time the run
// computed against; durations are real.
type RunReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Stages    []StageTiming `json:"stages"`
	Total     time.Duration `json:"total"`

	SyncedMembers   int `json:"synced_members"`
	SyncedContent   int `json:"synced_content"`
	ScoredContent   int `json:"scored_content"`
	AggregatedPairs int `json:"aggregated_pairs"`
	NewAwards       int `json:"new_awards"`

	Error string `json:"error,omitempty"`
}
