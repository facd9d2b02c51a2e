package util

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestCopyFile_KeepsModeAndModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.iiq")
	if err := os.WriteFile(src, []byte("capture"), 0600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "nested", "b.iiq")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	if _, err := os.Stat(dst + ".iiqsort.tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestMoveFile_SameDevice(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.iiq")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out", "STA1", "a.iiq")

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if ok, _ := Exists(src); ok {
		t.Fatalf("source still exists")
	}
	if ok, _ := Exists(dst); !ok {
		t.Fatalf("destination missing")
	}
}

func TestMoveFile_CrossDeviceFallback(t *testing.T) {
	orig := renameFunc
	t.Cleanup(func() { renameFunc = orig })
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "a.iiq")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "other", "a.iiq")

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Fatalf("dst = %q, %v", data, err)
	}
	if ok, _ := Exists(src); ok {
		t.Fatalf("source kept after cross-device move")
	}
}

func TestMoveFile_OtherErrorKeepsSource(t *testing.T) {
	orig := renameFunc
	t.Cleanup(func() { renameFunc = orig })
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EACCES}
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "a.iiq")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := MoveFile(src, filepath.Join(dir, "b.iiq"))
	if err == nil || !strings.Contains(err.Error(), "failed to move") {
		t.Fatalf("err = %v", err)
	}
	if ok, _ := Exists(src); !ok {
		t.Fatalf("source removed after failed move")
	}
}

func TestIsCrossDevice(t *testing.T) {
	if !IsCrossDevice(syscall.EXDEV) {
		t.Fatalf("bare EXDEV not detected")
	}
	if !IsCrossDevice(&os.LinkError{Err: syscall.EXDEV}) {
		t.Fatalf("wrapped EXDEV not detected")
	}
	if IsCrossDevice(syscall.ENOENT) {
		t.Fatalf("ENOENT reported as cross-device")
	}
}

func TestAtomicWrite(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "x", "report.json")
	if err := AtomicWrite(dst, strings.NewReader("{}")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "{}" {
		t.Fatalf("data = %q, %v", data, err)
	}
}
