package scan

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"iiqsort/internal/logger"

	"go.uber.org/zap"
)

// Candidate is a regular file found under the walk root.
type Candidate struct {
	Path    string
	RelPath string
	Size    int64
}

// Walker lists candidate files under Root. Symlinks are never followed.
type Walker struct {
	Root string
	// Include holds glob patterns matched case-insensitively against the base
	// name, e.g. "*.iiq". Empty means every file.
	Include []string
	// Ignore holds glob patterns matched against every path element.
	Ignore []string
	// Exclude holds absolute directories that are skipped entirely. The root
	// itself is always walked.
	Exclude []string
}

// Walk returns a restartable sequence over the tree. Errors on single entries
// are yielded alongside an empty Candidate and the walk continues.
func (w Walker) Walk() iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		root := filepath.Clean(w.Root)
		stopped := false

		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Log.Warn("walk error",
					zap.String("path", path),
					zap.Error(err))
				if !yield(Candidate{Path: path}, err) {
					stopped = true
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && (w.excluded(root, path) || w.ignored(d.Name())) {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}
			if w.ignored(d.Name()) || !w.included(d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if !yield(Candidate{Path: path}, err) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = d.Name()
			}

			if !yield(Candidate{Path: path, RelPath: rel, Size: info.Size()}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})

		if stopped {
			logger.Log.Debug("walk stopped early", zap.String("root", root))
		}
	}
}

// Enters reports whether Walk would descend into dir. It only looks at the
// path, never at the filesystem.
func (w Walker) Enters(dir string) bool {
	root := filepath.Clean(w.Root)
	rel, err := filepath.Rel(root, dir)
	if err != nil || !filepath.IsLocal(rel) {
		return false
	}
	if rel == "." {
		return true
	}
	if w.excluded(root, dir) {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.ignored(part) {
			return false
		}
	}
	return true
}

// Matches reports whether Walk would yield the regular file at path.
func (w Walker) Matches(path string) bool {
	name := filepath.Base(path)
	return w.Enters(filepath.Dir(path)) && !w.ignored(name) && w.included(name)
}

func (w Walker) included(name string) bool {
	if len(w.Include) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, pattern := range w.Include {
		if matched, err := filepath.Match(strings.ToLower(pattern), lower); err == nil && matched {
			return true
		}
	}
	return false
}

func (w Walker) ignored(name string) bool {
	for _, pattern := range w.Ignore {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func (w Walker) excluded(root, path string) bool {
	path = filepath.Clean(path)
	for _, base := range w.Exclude {
		base = filepath.Clean(base)
		if base == root {
			continue
		}
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
