package planner

import (
	"cmp"
	"path/filepath"
	"slices"

	"iiqsort/internal/model"
)

// Placement is a file whose destination directory is already decided, as in
// pair mode where files are sorted inside their own camera directory.
type Placement struct {
	Kind model.PlanKind
	Path string
	Name string
	Size int64
	// Dir is relative to the root handed to Place.
	Dir string
}

// Place plans every placement under root. Files that already sit at their
// destination produce no plan, so a second run over a sorted tree plans
// nothing.
func Place(root string, files []Placement, suffixSep string, suffixStart int) ([]model.MovePlan, error) {
	files = slices.Clone(files)
	slices.SortFunc(files, func(a, b Placement) int {
		return cmp.Or(
			cmp.Compare(a.Dir, b.Dir),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Path, b.Path),
		)
	})

	// Every current location under root is taken first: files already in
	// place keep their names and nothing is planned onto a file that has not
	// moved away yet.
	alloc := newAllocator(suffixSep, suffixStart)
	moving := make([]Placement, 0, len(files))
	for _, f := range files {
		if cur, err := filepath.Rel(root, f.Path); err == nil && filepath.IsLocal(cur) {
			if _, _, err := alloc.claim(cur); err != nil {
				return nil, err
			}
		}
		rel := filepath.Join(filepath.FromSlash(f.Dir), f.Name)
		if filepath.Clean(f.Path) == filepath.Join(root, rel) {
			continue
		}
		moving = append(moving, f)
	}

	plans := make([]model.MovePlan, 0, len(moving))
	for _, f := range moving {
		rel, n, err := alloc.claim(filepath.Join(filepath.FromSlash(f.Dir), f.Name))
		if err != nil {
			return nil, err
		}
		plans = append(plans, model.MovePlan{
			Kind:     f.Kind,
			Src:      f.Path,
			Dst:      filepath.Join(root, rel),
			DstRel:   rel,
			Conflict: n,
			Size:     f.Size,
		})
	}

	if err := CheckUnique(plans); err != nil {
		return nil, err
	}
	return plans, nil
}
