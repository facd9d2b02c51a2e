package executor

import "iiqsort/internal/util"

// Mover is the filesystem side of execution. Tests substitute fakes.
type Mover interface {
	Exists(path string) (bool, error)
	Move(src, dst string) error
	Copy(src, dst string) error
}

// FSMover works on the local filesystem and creates parent directories.
type FSMover struct{}

func (FSMover) Exists(path string) (bool, error) { return util.Exists(path) }

func (FSMover) Move(src, dst string) error { return util.MoveFile(src, dst) }

func (FSMover) Copy(src, dst string) error { return util.CopyFile(src, dst) }
