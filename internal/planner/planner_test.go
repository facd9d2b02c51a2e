package planner

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"iiqsort/internal/model"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func defaultOptions() Options {
	return Options{
		OutputRoot:   "/out",
		DirPattern:   "{station}/{start:20060102_150405}",
		FilePattern:  "{name}",
		SuffixSep:    "_",
		SuffixStart:  1,
		UnmatchedDir: "unmatched",
		EmptyDir:     "empty",
	}
}

func mustPlanner(t *testing.T, opts Options) *Planner {
	t.Helper()
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func session(station string, start time.Time, recs ...model.FileRecord) model.Session {
	return model.Session{Key: model.SessionKey{Station: station, Start: start}, Records: recs}
}

func rec(path, station string, ts time.Time) model.FileRecord {
	name := filepath.Base(path)
	return model.FileRecord{Path: path, Name: name, Station: station, Timestamp: ts, Ext: filepath.Ext(name), Size: 1}
}

func TestPlan_Scenario(t *testing.T) {
	p := mustPlanner(t, defaultOptions())

	plans, err := p.Plan([]model.Session{
		session("STA2", t0, rec("/src/STA2_20240101_120000.iiq", "STA2", t0)),
		session("STA1", t0,
			rec("/src/STA1_20240101_120000.iiq", "STA1", t0),
			rec("/src/STA1_20240101_120030.iiq", "STA1", t0.Add(30*time.Second)),
		),
	}, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []string{
		filepath.FromSlash("STA1/20240101_120000/STA1_20240101_120000.iiq"),
		filepath.FromSlash("STA1/20240101_120000/STA1_20240101_120030.iiq"),
		filepath.FromSlash("STA2/20240101_120000/STA2_20240101_120000.iiq"),
	}
	if len(plans) != len(want) {
		t.Fatalf("plans = %d, want %d", len(plans), len(want))
	}
	for i, pl := range plans {
		if pl.DstRel != want[i] {
			t.Fatalf("plan %d: dst = %q, want %q", i, pl.DstRel, want[i])
		}
		if pl.Dst != filepath.Join("/out", want[i]) {
			t.Fatalf("plan %d: abs dst = %q", i, pl.Dst)
		}
		if pl.Kind != model.PlanSession || pl.Conflict != 0 || pl.Session == nil {
			t.Fatalf("plan %d: unexpected %+v", i, pl)
		}
	}
}

func TestPlan_CollisionSuffixesFollowFilenameOrder(t *testing.T) {
	p := mustPlanner(t, defaultOptions())

	// Same filename from three source directories; the session lists them in
	// an order that differs from path order.
	recs := []model.FileRecord{
		rec("/src/c/STA1_20240101_120000.iiq", "STA1", t0),
		rec("/src/a/STA1_20240101_120000.iiq", "STA1", t0),
		rec("/src/b/STA1_20240101_120000.iiq", "STA1", t0),
	}
	plans, err := p.Plan([]model.Session{session("STA1", t0, recs...)}, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	dir := filepath.FromSlash("STA1/20240101_120000/")
	want := map[string]struct {
		rel      string
		conflict int
	}{
		"/src/a/STA1_20240101_120000.iiq": {dir + "STA1_20240101_120000.iiq", 0},
		"/src/b/STA1_20240101_120000.iiq": {dir + "STA1_20240101_120000_1.iiq", 1},
		"/src/c/STA1_20240101_120000.iiq": {dir + "STA1_20240101_120000_2.iiq", 2},
	}
	for _, pl := range plans {
		w := want[pl.Src]
		if pl.DstRel != w.rel || pl.Conflict != w.conflict {
			t.Fatalf("%s: got %q (#%d), want %q (#%d)", pl.Src, pl.DstRel, pl.Conflict, w.rel, w.conflict)
		}
	}
}

func TestPlan_AdversarialInputsStayUnique(t *testing.T) {
	opts := defaultOptions()
	opts.FilePattern = "{station}.iiq"
	p := mustPlanner(t, opts)

	var sessions []model.Session
	for s := 0; s < 3; s++ {
		var recs []model.FileRecord
		for i := 0; i < 25; i++ {
			recs = append(recs, rec(filepath.Join("/src", string(rune('a'+i)), "X.iiq"), "STA", t0))
		}
		// Every session has the same key as well, so all 75 files want one name.
		sessions = append(sessions, session("STA", t0, recs...))
	}

	plans, err := p.Plan(sessions, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 75 {
		t.Fatalf("plans = %d", len(plans))
	}

	seen := map[string]bool{}
	for _, pl := range plans {
		if seen[pl.Dst] {
			t.Fatalf("duplicate destination %s", pl.Dst)
		}
		seen[pl.Dst] = true
	}
	if err := CheckUnique(plans); err != nil {
		t.Fatalf("CheckUnique: %v", err)
	}
}

func TestPlan_SuffixDoesNotReuseExistingName(t *testing.T) {
	opts := defaultOptions()
	opts.DirPattern = "flat"
	p := mustPlanner(t, opts)

	// "X_1.iiq" is claimed by an earlier session, so the second "X.iiq" has
	// to skip to _2.
	plans, err := p.Plan([]model.Session{
		session("B", t0,
			rec("/src/a/X.iiq", "B", t0),
			rec("/src/b/X.iiq", "B", t0),
		),
		session("A", t0, rec("/src/X_1.iiq", "A", t0)),
	}, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if err := CheckUnique(plans); err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, pl := range plans {
		got[pl.Src] = filepath.Base(pl.DstRel)
	}
	if got["/src/a/X.iiq"] != "X.iiq" || got["/src/b/X.iiq"] != "X_2.iiq" || got["/src/X_1.iiq"] != "X_1.iiq" {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestPlan_CaseInsensitiveCollision(t *testing.T) {
	p := mustPlanner(t, defaultOptions())
	plans, err := p.Plan([]model.Session{session("S", t0,
		rec("/src/A.iiq", "S", t0),
		rec("/src/sub/a.iiq", "S", t0),
	)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if plans[1].Conflict != 1 {
		t.Fatalf("names differing only by case must be disambiguated: %+v", plans)
	}
}

func TestPlan_ConfigurableSuffix(t *testing.T) {
	opts := defaultOptions()
	opts.SuffixSep = "-"
	opts.SuffixStart = 2
	p := mustPlanner(t, opts)

	plans, err := p.Plan([]model.Session{session("S", t0,
		rec("/src/a/X.iiq", "S", t0),
		rec("/src/b/X.iiq", "S", t0),
	)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(plans[1].DstRel) != "X-2.iiq" || plans[1].Conflict != 2 {
		t.Fatalf("got %q", plans[1].DstRel)
	}
}

func TestPlan_FilePatternTags(t *testing.T) {
	opts := defaultOptions()
	opts.DirPattern = "{start:2006-01-02}/{station}_{count}"
	opts.FilePattern = "{index}_{time:150405}{ext}"
	p := mustPlanner(t, opts)

	plans, err := p.Plan([]model.Session{session("S", t0,
		rec("/src/b.iiq", "S", t0),
		rec("/src/a.iiq", "S", t0.Add(5*time.Second)),
	)}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, pl := range plans {
		got[pl.Src] = filepath.ToSlash(pl.DstRel)
	}
	if got["/src/b.iiq"] != "2024-01-01/S_2/0001_120000.iiq" || got["/src/a.iiq"] != "2024-01-01/S_2/0002_120005.iiq" {
		t.Fatalf("unexpected destinations: %v", got)
	}
}

func TestPlan_LooseFiles(t *testing.T) {
	p := mustPlanner(t, defaultOptions())

	plans, err := p.Plan(nil, []Loose{
		{Kind: model.PlanUnmatched, Path: "/src/x/garbage.iiq", Name: "garbage.iiq", Size: 3},
		{Kind: model.PlanUnmatched, Path: "/src/garbage.iiq", Name: "garbage.iiq", Size: 3},
		{Kind: model.PlanEmpty, Path: "/src/STA1_20240101_120000.iiq", Name: "STA1_20240101_120000.iiq"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, pl := range plans {
		got[pl.Src] = filepath.ToSlash(pl.DstRel)
	}
	want := map[string]string{
		"/src/STA1_20240101_120000.iiq": "empty/STA1_20240101_120000.iiq",
		"/src/garbage.iiq":              "unmatched/garbage.iiq",
		"/src/x/garbage.iiq":            "unmatched/garbage_1.iiq",
	}
	for src, dst := range want {
		if got[src] != dst {
			t.Fatalf("%s -> %q, want %q", src, got[src], dst)
		}
	}
}

func TestPlan_Pure(t *testing.T) {
	p := mustPlanner(t, defaultOptions())
	in := []model.Session{session("S", t0, rec("/src/b/X.iiq", "S", t0), rec("/src/a/X.iiq", "S", t0))}

	first, err := p.Plan(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := p.Plan(in, nil)
	for i := range first {
		if first[i].Dst != second[i].Dst || first[i].Src != second[i].Src {
			t.Fatalf("plans differ between calls")
		}
	}
	if in[0].Records[0].Path != "/src/b/X.iiq" {
		t.Fatalf("input session was reordered")
	}
}

func TestPlan_EscapingPatternRejected(t *testing.T) {
	opts := defaultOptions()
	opts.DirPattern = "../{station}"
	p := mustPlanner(t, opts)

	if _, err := p.Plan([]model.Session{session("S", t0, rec("/src/a.iiq", "S", t0))}, nil); err == nil {
		t.Fatalf("expected error for destination outside the output root")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"unknown dir tag", func(o *Options) { o.DirPattern = "{camera}" }},
		{"file tag in dir pattern", func(o *Options) { o.DirPattern = "{station}/{name}" }},
		{"unknown file tag", func(o *Options) { o.FilePattern = "{nope}" }},
		{"no output root", func(o *Options) { o.OutputRoot = "" }},
		{"suffix start zero", func(o *Options) { o.SuffixStart = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.mutate(&opts)
			if _, err := New(opts); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCheckUnique_ReportsConflict(t *testing.T) {
	err := CheckUnique([]model.MovePlan{
		{Src: "/a", Dst: "/out/X.iiq"},
		{Src: "/b", Dst: "/out/x.iiq"},
	})
	var cerr *model.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(cerr.Sources) != 2 {
		t.Fatalf("sources = %v", cerr.Sources)
	}
}
