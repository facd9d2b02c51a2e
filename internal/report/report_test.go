package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"iiqsort/internal/model"
)

func sampleSummary() *model.Summary {
	sum := &model.Summary{
		RunID:       "3f1c",
		Source:      "/src",
		Output:      "/out",
		Mode:        "move",
		Sessions:    2,
		ParseErrors: []model.Failure{{Path: "/src/garbage.iiq", Reason: "no_match"}},
	}
	sum.Add(model.Outcome{Plan: model.MovePlan{Src: "/src/a.iiq", DstRel: "STA1/a.iiq", Size: 2048}, Kind: model.OutcomeMoved})
	sum.Add(model.Outcome{Plan: model.MovePlan{Src: "/src/b.iiq", DstRel: "STA1/a_1.iiq", Conflict: 1}, Kind: model.OutcomeFailed, Reason: "move"})
	return sum
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, sampleSummary())
	out := buf.String()

	for _, want := range []string{"run 3f1c", "2.0 KiB", "/src/garbage.iiq", "failures:", "/src/b.iiq"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestPlans(t *testing.T) {
	var buf bytes.Buffer
	Plans(&buf, sampleSummary())
	if !strings.Contains(buf.String(), "STA1/a_1.iiq (#1)") {
		t.Fatalf("conflict marker missing:\n%s", buf.String())
	}
}

func TestPairing(t *testing.T) {
	var buf bytes.Buffer
	sum := sampleSummary()
	Pairing(&buf, sum)
	if buf.Len() != 0 {
		t.Fatalf("non-pair run printed %q", buf.String())
	}

	sum.Pairing = &model.PairStats{Left: "CAMERA_RGB", Right: "CAMERA_NIR", LeftCount: 2, RightCount: 2, Matched: 1, LeftUnmatched: 1, RightUnmatched: 1}
	Pairing(&buf, sum)
	out := buf.String()
	for _, want := range []string{"1 matched pair(s)", "CAMERA_RGB", "CAMERA_NIR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	History(&buf, nil)
	if strings.TrimSpace(buf.String()) != "no history yet" {
		t.Fatalf("empty history = %q", buf.String())
	}

	buf.Reset()
	History(&buf, []model.History{{
		RunID:     "0123456789abcdef",
		Outcome:   model.OutcomeFailed,
		SrcPath:   "/src/a.iiq",
		HandledAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}})
	out := buf.String()
	if !strings.Contains(out, "01234567") || strings.Contains(out, "0123456789") || !strings.Contains(out, "✗") {
		t.Fatalf("history:\n%s", out)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleSummary()); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["run_id"] != "3f1c" {
		t.Fatalf("run_id = %v", decoded["run_id"])
	}
	if _, ok := decoded["Outcomes"]; ok {
		t.Fatal("outcomes must not be serialised")
	}
	if _, ok := decoded["pairing"]; ok {
		t.Fatal("pairing must be omitted outside pair runs")
	}
	if IsTerminal(&buf) {
		t.Fatal("buffer reported as terminal")
	}
}
