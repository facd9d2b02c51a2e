package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// renameFunc is swapped in tests to simulate cross-device renames.
var renameFunc = os.Rename

// AtomicWrite writes r to dst through a temporary sibling file, so dst is
// either absent or complete.
func AtomicWrite(dst string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	tmp := dst + ".iiqsort.tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename: %w", err)
	}

	return nil
}

// CopyFile copies src to dst atomically and keeps the source mode and
// modification time.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat src: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("src %s is not a regular file", src)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := AtomicWrite(dst, f); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set times on %s: %w", dst, err)
	}

	return nil
}

// MoveFile renames src to dst, creating parent directories. Across devices it
// copies and removes the source only after the copy is complete.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	err := renameFunc(src, dst)
	if err == nil {
		return nil
	}
	if !IsCrossDevice(err) {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}

	if err := CopyFile(src, dst); err != nil {
		return fmt.Errorf("cross-device copy of %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("copied %s but failed to remove source: %w", src, err)
	}

	return nil
}

// IsCrossDevice reports whether err is an EXDEV rename failure.
func IsCrossDevice(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	if le, ok := errors.AsType[*os.LinkError](err); ok {
		return errors.Is(le.Err, syscall.EXDEV)
	}
	return false
}

// Exists reports whether path exists, without following a final symlink.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
