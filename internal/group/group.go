package group

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"iiqsort/internal/model"
)

// Grouper partitions records into capture sessions.
type Grouper struct {
	tolerance time.Duration
}

func New(tolerance time.Duration) (*Grouper, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative: %s", tolerance)
	}
	return &Grouper{tolerance: tolerance}, nil
}

// Group sorts by (station, timestamp, filename) and starts a new session when
// the station changes or the gap to the previous record exceeds the tolerance.
// A gap equal to the tolerance stays in the session. The input is not modified.
func (g *Grouper) Group(records []model.FileRecord) []model.Session {
	if len(records) == 0 {
		return nil
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, compareRecords)

	sessions := make([]model.Session, 0, 8)
	cur := model.Session{
		Key:     model.SessionKey{Station: sorted[0].Station, Start: sorted[0].Timestamp},
		Records: []model.FileRecord{sorted[0]},
	}

	for i := 1; i < len(sorted); i++ {
		prev, rec := sorted[i-1], sorted[i]
		if rec.Station != prev.Station || rec.Timestamp.Sub(prev.Timestamp) > g.tolerance {
			sessions = append(sessions, cur)
			cur = model.Session{
				Key:     model.SessionKey{Station: rec.Station, Start: rec.Timestamp},
				Records: make([]model.FileRecord, 0, 8),
			}
		}
		cur.Records = append(cur.Records, rec)
	}

	return append(sessions, cur)
}

func compareRecords(a, b model.FileRecord) int {
	return cmp.Or(
		cmp.Compare(a.Station, b.Station),
		a.Timestamp.Compare(b.Timestamp),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Path, b.Path),
	)
}
