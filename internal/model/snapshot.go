package model

import "time"

// RunSnapshot is what the HTTP API reports about the runner.
type RunSnapshot struct {
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	LastRun   *time.Time `json:"last_run"`
	LastRunID string     `json:"last_run_id,omitempty"`
	Last      *Summary   `json:"last,omitempty"`
}
