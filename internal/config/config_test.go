package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tolerance != Default.Tolerance || cfg.Grammar != Default.Grammar || cfg.Mode != ModeMove {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DBPath != filepath.Join(home, ".iiqsort", "history.db") {
		t.Fatalf("db path = %s", cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "iiqsort.yaml")
	data := `
tolerance: 90s
mode: copy
unmatched: isolate
empty_files: keep
dir_pattern: "{station}/{start:2006-01-02}"
grammar_spec:
  pattern: '^(?P<timestamp>\d{6}_\d{6})(?P<frac>\d{3})$'
  timestamp_layout: "060102_150405"
  frac_digits: 3
  station_from: parent_dir
  extensions: [".iiq"]
db_path: /tmp/h.db
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tolerance != 90*time.Second || cfg.Mode != ModeCopy || cfg.Unmatched != UnmatchedIsolate || cfg.EmptyFiles != EmptyKeep {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DBPath != "/tmp/h.db" {
		t.Fatalf("db path = %s", cfg.DBPath)
	}
	if cfg.SuffixSep != "_" {
		t.Fatalf("default suffix lost: %q", cfg.SuffixSep)
	}

	g, err := cfg.BuildGrammar()
	if err != nil {
		t.Fatalf("BuildGrammar: %v", err)
	}
	rec, err := g.Parse("/src/C1_RGB/210101_120000250.iiq", "C1_RGB/210101_120000250.iiq", 1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Station != "C1_RGB" || rec.Timestamp.Nanosecond() != 250*int(time.Millisecond) {
		t.Fatalf("record = %+v", rec)
	}
}

func TestLoad_Env(t *testing.T) {
	isolateHome(t)
	t.Setenv("IIQSORT_TOLERANCE", "5s")
	t.Setenv("IIQSORT_OVERWRITE", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tolerance != 5*time.Second || !cfg.Overwrite {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoad_Pair(t *testing.T) {
	isolateHome(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pair != Default.Pair {
		t.Fatalf("pair defaults = %+v", cfg.Pair)
	}

	t.Setenv("IIQSORT_PAIR_THRESHOLD", "350ms")
	t.Setenv("IIQSORT_PAIR_LEFT", "*_VIS")

	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pair.Threshold != 350*time.Millisecond || cfg.Pair.Left != "*_VIS" || cfg.Pair.Right != "C*_NIR" {
		t.Fatalf("pair env not applied: %+v", cfg.Pair)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !IsConfigError(err) {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{"negative tolerance", "tolerance", func(c *Config) { c.Tolerance = -time.Second }},
		{"unknown grammar", "grammar", func(c *Config) { c.Grammar = "nikon" }},
		{"bad regexp", "grammar", func(c *Config) {
			c.GrammarSpec.Pattern = "(?P<timestamp>["
			c.GrammarSpec.TimestampLayout = "20060102"
			c.GrammarSpec.Extensions = []string{".iiq"}
		}},
		{"no include", "include", func(c *Config) { c.Include = nil }},
		{"bad glob", "include", func(c *Config) { c.IgnoreList = []string{"["} }},
		{"empty dir pattern", "dir_pattern", func(c *Config) { c.DirPattern = " " }},
		{"suffix start", "suffix_start", func(c *Config) { c.SuffixStart = 0 }},
		{"suffix sep", "suffix_sep", func(c *Config) { c.SuffixSep = "/" }},
		{"mode", "mode", func(c *Config) { c.Mode = "link" }},
		{"unmatched policy", "unmatched", func(c *Config) { c.Unmatched = "delete" }},
		{"empty policy", "empty_files", func(c *Config) { c.EmptyFiles = "drop" }},
		{"unmatched dir escapes", "unmatched_dir", func(c *Config) { c.UnmatchedDir = "../x" }},
		{"empty dir absolute", "empty_dir", func(c *Config) { c.EmptyDir = "/empty" }},
		{"port", "server_port", func(c *Config) { c.ServerPort = 70000 }},
		{"negative pair threshold", "pair.threshold", func(c *Config) { c.Pair.Threshold = -time.Millisecond }},
		{"empty left glob", "pair.left", func(c *Config) { c.Pair.Left = "" }},
		{"bad right glob", "pair.right", func(c *Config) { c.Pair.Right = "C[" }},
		{"unknown pair grammar", "pair.grammar", func(c *Config) { c.Pair.Grammar = "nikon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if cerr.Field != tt.field {
				t.Fatalf("field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestCheckSource(t *testing.T) {
	dir := t.TempDir()
	if err := CheckSource(dir); err != nil {
		t.Fatalf("empty dir rejected: %v", err)
	}
	if err := CheckSource(filepath.Join(dir, "missing")); !IsConfigError(err) {
		t.Fatalf("missing dir: %v", err)
	}

	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckSource(file); !IsConfigError(err) {
		t.Fatalf("file as source: %v", err)
	}
	if err := CheckOutput(file); !IsConfigError(err) {
		t.Fatalf("file as output: %v", err)
	}
	if err := CheckOutput(filepath.Join(dir, "new")); err != nil {
		t.Fatalf("missing output should be created later: %v", err)
	}
}
