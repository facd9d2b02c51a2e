// Package pairing matches the captures of two cameras that fire together,
// such as the RGB and NIR backs of a multispectral rig.
package pairing

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"iiqsort/internal/model"
)

// Pair is one left capture and the right capture taken with it.
type Pair struct {
	Left  model.FileRecord
	Right model.FileRecord
	Delta time.Duration
}

type Result struct {
	Pairs          []Pair
	LeftUnmatched  []model.FileRecord
	RightUnmatched []model.FileRecord
}

// Match looks up the nearest capture of the other camera for every record, in
// both directions, and keeps the pairs at most threshold apart. A record is
// unmatched when it is part of no kept pair. Several records may pair with the
// same counterpart.
func Match(left, right []model.FileRecord, threshold time.Duration) (Result, error) {
	if threshold < 0 {
		return Result{}, fmt.Errorf("pair threshold must not be negative: %s", threshold)
	}

	left = sortByTime(left)
	right = sortByTime(right)

	type key struct{ l, r int }
	seen := make(map[key]struct{})
	var res Result
	pairedL := make([]bool, len(left))
	pairedR := make([]bool, len(right))

	keep := func(li, ri int) {
		if _, ok := seen[key{li, ri}]; ok {
			return
		}
		d := absDelta(left[li].Timestamp, right[ri].Timestamp)
		if d > threshold {
			return
		}
		seen[key{li, ri}] = struct{}{}
		pairedL[li], pairedR[ri] = true, true
		res.Pairs = append(res.Pairs, Pair{Left: left[li], Right: right[ri], Delta: d})
	}

	for li := range left {
		if ri, ok := nearest(right, left[li].Timestamp); ok {
			keep(li, ri)
		}
	}
	for ri := range right {
		if li, ok := nearest(left, right[ri].Timestamp); ok {
			keep(li, ri)
		}
	}

	slices.SortFunc(res.Pairs, func(a, b Pair) int {
		return cmp.Or(
			a.Left.Timestamp.Compare(b.Left.Timestamp),
			a.Right.Timestamp.Compare(b.Right.Timestamp),
			cmp.Compare(a.Left.Path, b.Left.Path),
			cmp.Compare(a.Right.Path, b.Right.Path),
		)
	})

	for i, ok := range pairedL {
		if !ok {
			res.LeftUnmatched = append(res.LeftUnmatched, left[i])
		}
	}
	for i, ok := range pairedR {
		if !ok {
			res.RightUnmatched = append(res.RightUnmatched, right[i])
		}
	}

	return res, nil
}

// nearest returns the index of the record closest to ts. On a tie the earlier
// record wins.
func nearest(sorted []model.FileRecord, ts time.Time) (int, bool) {
	if len(sorted) == 0 {
		return 0, false
	}

	i, _ := slices.BinarySearchFunc(sorted, ts, func(r model.FileRecord, t time.Time) int {
		return r.Timestamp.Compare(t)
	})
	switch {
	case i == 0:
		return 0, true
	case i == len(sorted):
		return i - 1, true
	}

	if absDelta(sorted[i].Timestamp, ts) < absDelta(sorted[i-1].Timestamp, ts) {
		return i, true
	}
	return i - 1, true
}

func sortByTime(records []model.FileRecord) []model.FileRecord {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b model.FileRecord) int {
		return cmp.Or(
			a.Timestamp.Compare(b.Timestamp),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Path, b.Path),
		)
	})
	return sorted
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
