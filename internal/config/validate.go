package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Error is a configuration problem. It is always fatal and reported before
// any file is touched.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IsConfigError(err error) bool {
	_, ok := errors.AsType[*Error](err)
	return ok
}

func (c *Config) Validate() error {
	if c.Tolerance < 0 {
		return &Error{Field: "tolerance", Err: fmt.Errorf("must not be negative, got %s", c.Tolerance)}
	}

	if _, err := c.BuildGrammar(); err != nil {
		return err
	}

	if len(c.Include) == 0 {
		return &Error{Field: "include", Err: fmt.Errorf("at least one pattern is required")}
	}
	for _, p := range append(append([]string(nil), c.Include...), c.IgnoreList...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return &Error{Field: "include", Err: fmt.Errorf("bad glob %q: %w", p, err)}
		}
	}

	if strings.TrimSpace(c.DirPattern) == "" {
		return &Error{Field: "dir_pattern", Err: fmt.Errorf("must not be empty")}
	}
	if strings.TrimSpace(c.FilePattern) == "" {
		return &Error{Field: "file_pattern", Err: fmt.Errorf("must not be empty")}
	}
	if c.SuffixStart < 1 {
		return &Error{Field: "suffix_start", Err: fmt.Errorf("must be at least 1, got %d", c.SuffixStart)}
	}
	if strings.ContainsAny(c.SuffixSep, `/\`) {
		return &Error{Field: "suffix_sep", Err: fmt.Errorf("must not contain path separators")}
	}

	switch c.Mode {
	case ModeMove, ModeCopy:
	default:
		return &Error{Field: "mode", Err: fmt.Errorf("must be %s or %s, got %q", ModeMove, ModeCopy, c.Mode)}
	}

	switch c.Unmatched {
	case UnmatchedSkip, UnmatchedIsolate:
	default:
		return &Error{Field: "unmatched", Err: fmt.Errorf("must be %s or %s, got %q", UnmatchedSkip, UnmatchedIsolate, c.Unmatched)}
	}

	switch c.EmptyFiles {
	case EmptyKeep, EmptySkip, EmptyIsolate:
	default:
		return &Error{Field: "empty_files", Err: fmt.Errorf("must be %s, %s or %s, got %q", EmptyKeep, EmptySkip, EmptyIsolate, c.EmptyFiles)}
	}

	for _, d := range []struct{ field, dir string }{
		{"unmatched_dir", c.UnmatchedDir},
		{"empty_dir", c.EmptyDir},
	} {
		if !filepath.IsLocal(filepath.FromSlash(d.dir)) {
			return &Error{Field: d.field, Err: fmt.Errorf("must be a relative path inside the output root, got %q", d.dir)}
		}
	}

	if err := c.validatePair(); err != nil {
		return err
	}

	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return &Error{Field: "server_port", Err: fmt.Errorf("out of range: %d", c.ServerPort)}
	}

	return nil
}

func (c *Config) validatePair() error {
	if c.Pair.Threshold < 0 {
		return &Error{Field: "pair.threshold", Err: fmt.Errorf("must not be negative, got %s", c.Pair.Threshold)}
	}
	for _, d := range []struct{ field, glob string }{
		{"pair.left", c.Pair.Left},
		{"pair.right", c.Pair.Right},
	} {
		if strings.TrimSpace(d.glob) == "" {
			return &Error{Field: d.field, Err: fmt.Errorf("must not be empty")}
		}
		if _, err := filepath.Match(d.glob, ""); err != nil {
			return &Error{Field: d.field, Err: fmt.Errorf("bad glob %q: %w", d.glob, err)}
		}
	}
	if _, err := c.BuildPairGrammar(); err != nil {
		return err
	}
	return nil
}

// CheckSource makes sure root is a readable directory.
func CheckSource(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &Error{Field: "source", Err: err}
	}
	if !info.IsDir() {
		return &Error{Field: "source", Err: fmt.Errorf("%s is not a directory", root)}
	}

	f, err := os.Open(root)
	if err != nil {
		return &Error{Field: "source", Err: err}
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Field: "source", Err: fmt.Errorf("%s is not readable: %w", root, err)}
	}
	return nil
}

// CheckOutput rejects an output root that is a file.
func CheckOutput(root string) error {
	if strings.TrimSpace(root) == "" {
		return &Error{Field: "output", Err: fmt.Errorf("must not be empty")}
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &Error{Field: "output", Err: err}
	}
	if !info.IsDir() {
		return &Error{Field: "output", Err: fmt.Errorf("%s is not a directory", root)}
	}
	return nil
}

// CheckRoots rejects an output root equal to the source root.
func CheckRoots(source, output string) error {
	if filepath.Clean(source) == filepath.Clean(output) {
		return &Error{Field: "output", Err: fmt.Errorf("output root %s is the source root; pick a separate directory or use pair mode", output)}
	}
	return nil
}
