package model

import "time"

type OutcomeKind string

const (
	OutcomePlanned OutcomeKind = "planned"
	OutcomeMoved   OutcomeKind = "moved"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

const (
	SkipDestinationExists = "destination exists"
	SkipInterrupted       = "interrupted"
)

type Outcome struct {
	Plan   MovePlan
	Kind   OutcomeKind
	Reason string
	Err    error
}

type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type Counts struct {
	Planned int `json:"planned"`
	Moved   int `json:"moved"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	// Unreadable counts entries of the source tree that could not be listed
	// or stat'ed. Files below them were never considered.
	Unreadable int `json:"unreadable"`
}

// Summary is the run report handed back to the front end.
type Summary struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	Output      string    `json:"output"`
	DryRun      bool      `json:"dry_run"`
	Mode        string    `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Sessions    int       `json:"sessions"`
	Counts      Counts    `json:"counts"`
	BytesMoved  int64     `json:"bytes_moved"`
	ParseErrors []Failure `json:"parse_errors"`
	Failures    []Failure `json:"failures"`
	Outcomes    []Outcome `json:"-"`

	// Pairing is set by pair runs only.
	Pairing *PairStats `json:"pairing,omitempty"`
}

// PairStats counts the captures of a pair run per camera directory.
type PairStats struct {
	Left           string `json:"left"`
	Right          string `json:"right"`
	LeftCount      int    `json:"left_count"`
	RightCount     int    `json:"right_count"`
	Matched        int    `json:"matched"`
	LeftUnmatched  int    `json:"left_unmatched"`
	RightUnmatched int    `json:"right_unmatched"`
	LeftEmpty      int    `json:"left_empty"`
	RightEmpty     int    `json:"right_empty"`
}

// Add records an outcome and updates the counters.
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case OutcomePlanned:
		s.Counts.Planned++
	case OutcomeMoved:
		s.Counts.Moved++
		s.BytesMoved += o.Plan.Size
	case OutcomeSkipped:
		s.Counts.Skipped++
	case OutcomeFailed:
		s.Counts.Failed++
		reason := o.Reason
		if o.Err != nil {
			reason = o.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{Path: o.Plan.Src, Reason: reason})
	}
}

// AddWalkError records a part of the source tree that could not be read.
func (s *Summary) AddWalkError(path string, err error) {
	s.Counts.Unreadable++
	s.Failures = append(s.Failures, Failure{Path: path, Reason: err.Error()})
}

// Incomplete is the number of files that failed plus the source entries that
// could not be read. A run is clean only when it is zero.
func (s *Summary) Incomplete() int {
	return s.Counts.Failed + s.Counts.Unreadable
}
