package model

import (
	"errors"
	"testing"
)

func TestSummary_Incomplete(t *testing.T) {
	var sum Summary
	sum.Add(Outcome{Plan: MovePlan{Src: "/src/a.iiq", Size: 5}, Kind: OutcomeMoved})
	sum.Add(Outcome{Plan: MovePlan{Src: "/src/b.iiq"}, Kind: OutcomeSkipped, Reason: SkipDestinationExists})
	if sum.Incomplete() != 0 {
		t.Fatalf("clean run reported incomplete: %+v", sum.Counts)
	}

	sum.AddWalkError("/src/locked", errors.New("permission denied"))
	if sum.Incomplete() != 1 || sum.Counts.Unreadable != 1 || sum.Counts.Failed != 0 {
		t.Fatalf("counts = %+v", sum.Counts)
	}

	sum.Add(Outcome{Plan: MovePlan{Src: "/src/c.iiq"}, Kind: OutcomeFailed, Err: errors.New("device busy")})
	if sum.Incomplete() != 2 {
		t.Fatalf("incomplete = %d", sum.Incomplete())
	}
	if len(sum.Failures) != 2 || sum.Failures[0].Path != "/src/locked" || sum.Failures[1].Reason != "device busy" {
		t.Fatalf("failures = %+v", sum.Failures)
	}
	if sum.BytesMoved != 5 {
		t.Fatalf("bytes moved = %d", sum.BytesMoved)
	}
}
