package model

import (
	"fmt"
	"strings"
)

type PlanKind string

const (
	PlanSession   PlanKind = "session"
	PlanUnmatched PlanKind = "unmatched"
	PlanEmpty     PlanKind = "empty"

	// Pair mode: a capture with a counterpart in the other camera, and one
	// without.
	PlanPaired   PlanKind = "paired"
	PlanUnpaired PlanKind = "unpaired"
)

// MovePlan describes one relocation. Conflict is 0 when the destination kept
// its unsuffixed name.
type MovePlan struct {
	Kind     PlanKind
	Src      string
	Dst      string
	DstRel   string
	Conflict int
	Size     int64
	Session  *SessionKey
}

// ConflictError means two plans of one run still share a destination after
// disambiguation.
type ConflictError struct {
	Dst     string
	Sources []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination %s planned for multiple sources: %s", e.Dst, strings.Join(e.Sources, ", "))
}
