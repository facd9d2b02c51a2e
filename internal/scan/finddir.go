package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FindDir returns the single directory directly under base whose name matches
// pattern, e.g. "C*_RGB". No match or several matches is an error.
func FindDir(base, pattern string) (string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return "", fmt.Errorf("bad directory pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", err
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if matched, _ := filepath.Match(pattern, e.Name()); matched {
			dirs = append(dirs, filepath.Join(base, e.Name()))
		}
	}
	sort.Strings(dirs)

	switch len(dirs) {
	case 1:
		return dirs[0], nil
	case 0:
		return "", fmt.Errorf("no directory matching %q found in %s", pattern, base)
	default:
		return "", fmt.Errorf("multiple directories matching %q found in %s: %v", pattern, base, dirs)
	}
}
