// Package planner computes where every file of a run goes. It never touches
// the filesystem: the same sessions and options always give the same plans.
package planner

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"iiqsort/internal/model"
)

type Options struct {
	OutputRoot   string
	DirPattern   string
	FilePattern  string
	SuffixSep    string
	SuffixStart  int
	UnmatchedDir string
	EmptyDir     string
}

// Loose is a file planned outside any session (unmatched or empty).
type Loose struct {
	Kind    model.PlanKind
	Path    string
	RelPath string
	Name    string
	Size    int64
}

type Planner struct {
	opts Options
	dir  *pattern
	file *pattern
}

func New(opts Options) (*Planner, error) {
	if strings.TrimSpace(opts.OutputRoot) == "" {
		return nil, fmt.Errorf("output root is empty")
	}
	if opts.SuffixStart < 1 {
		return nil, fmt.Errorf("suffix start must be at least 1, got %d", opts.SuffixStart)
	}

	dir, err := compilePattern(opts.DirPattern)
	if err != nil {
		return nil, err
	}
	file, err := compilePattern(opts.FilePattern)
	if err != nil {
		return nil, err
	}

	p := &Planner{opts: opts, dir: dir, file: file}

	sample := sampleNaming()
	if _, err := p.dir.render(naming{session: sample.session}); err != nil {
		return nil, err
	}
	if _, err := p.file.render(sample); err != nil {
		return nil, err
	}

	return p, nil
}

// Plan returns one MovePlan per record and loose file. Sessions are visited
// by (station, start); inside a session names are claimed in filename order,
// so the first file keeps the bare name and later collisions get _1, _2, ...
func (p *Planner) Plan(sessions []model.Session, loose []Loose) ([]model.MovePlan, error) {
	sessions = slices.Clone(sessions)
	slices.SortFunc(sessions, func(a, b model.Session) int {
		return cmp.Or(
			cmp.Compare(a.Key.Station, b.Key.Station),
			a.Key.Start.Compare(b.Key.Start),
		)
	})

	alloc := newAllocator(p.opts.SuffixSep, p.opts.SuffixStart)
	plans := make([]model.MovePlan, 0, len(loose)+len(sessions)*8)

	for si := range sessions {
		s := &sessions[si]
		dir, err := p.dir.render(naming{session: s})
		if err != nil {
			return nil, err
		}

		index := make(map[string]int, len(s.Records))
		for i, r := range s.Records {
			index[r.Path] = i + 1
		}

		recs := slices.Clone(s.Records)
		slices.SortFunc(recs, func(a, b model.FileRecord) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Path, b.Path))
		})

		key := s.Key
		for ri := range recs {
			r := &recs[ri]
			name, err := p.file.render(naming{session: s, rec: r, index: index[r.Path]})
			if err != nil {
				return nil, err
			}

			rel, n, err := alloc.claim(filepath.Join(filepath.FromSlash(dir), filepath.FromSlash(name)))
			if err != nil {
				return nil, err
			}

			plans = append(plans, model.MovePlan{
				Kind:     model.PlanSession,
				Src:      r.Path,
				Dst:      filepath.Join(p.opts.OutputRoot, rel),
				DstRel:   rel,
				Conflict: n,
				Size:     r.Size,
				Session:  &key,
			})
		}
	}

	loose = slices.Clone(loose)
	slices.SortFunc(loose, func(a, b Loose) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Path, b.Path),
		)
	})

	for _, l := range loose {
		var dir string
		switch l.Kind {
		case model.PlanUnmatched:
			dir = p.opts.UnmatchedDir
		case model.PlanEmpty:
			dir = p.opts.EmptyDir
		default:
			return nil, fmt.Errorf("unsupported loose plan kind %q for %s", l.Kind, l.Path)
		}

		rel, n, err := alloc.claim(filepath.Join(filepath.FromSlash(dir), l.Name))
		if err != nil {
			return nil, err
		}

		plans = append(plans, model.MovePlan{
			Kind:     l.Kind,
			Src:      l.Path,
			Dst:      filepath.Join(p.opts.OutputRoot, rel),
			DstRel:   rel,
			Conflict: n,
			Size:     l.Size,
		})
	}

	if err := CheckUnique(plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CheckUnique returns a *model.ConflictError if two plans share a destination.
func CheckUnique(plans []model.MovePlan) error {
	seen := make(map[string]int, len(plans))
	for i, pl := range plans {
		key := foldKey(pl.Dst)
		if j, ok := seen[key]; ok {
			return &model.ConflictError{Dst: pl.Dst, Sources: []string{plans[j].Src, pl.Src}}
		}
		seen[key] = i
	}
	return nil
}

// foldKey makes names that differ only by case collide, so plans stay unique
// on case-insensitive volumes too.
func foldKey(p string) string {
	return strings.ToLower(filepath.Clean(p))
}

type allocator struct {
	sep   string
	start int
	used  map[string]struct{}
}

func newAllocator(sep string, start int) *allocator {
	return &allocator{sep: sep, start: start, used: make(map[string]struct{}, 256)}
}

func (a *allocator) claim(rel string) (string, int, error) {
	rel = filepath.Clean(rel)
	if !filepath.IsLocal(rel) {
		return "", 0, fmt.Errorf("destination %q escapes the output root", rel)
	}

	if _, ok := a.used[foldKey(rel)]; !ok {
		a.used[foldKey(rel)] = struct{}{}
		return rel, 0, nil
	}

	ext := filepath.Ext(rel)
	base := strings.TrimSuffix(rel, ext)
	for n := a.start; ; n++ {
		cand := fmt.Sprintf("%s%s%d%s", base, a.sep, n, ext)
		if _, ok := a.used[foldKey(cand)]; !ok {
			a.used[foldKey(cand)] = struct{}{}
			return cand, n, nil
		}
	}
}
