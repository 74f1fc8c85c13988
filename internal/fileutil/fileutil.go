// Package fileutil holds the small file helpers shared by the state store
// and the dotenv publisher.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned by ReadFileLimited for files above the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// DirPerm is used for parent directories created on demand.
const DirPerm os.FileMode = 0o755

type tempFile interface {
	Name() string
	Chmod(os.FileMode) error
	Write([]byte) (int, error)
	Sync() error
	Close() error
}

// fsOps lets tests inject failures into the write path.
type fsOps struct {
	mkdirAll   func(path string, perm os.FileMode) error
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	remove     func(path string) error
}

var osOps = fsOps{
	mkdirAll: os.MkdirAll,
	createTemp: func(dir, pattern string) (tempFile, error) {
		return os.CreateTemp(dir, pattern)
	},
	rename: os.Rename,
	remove: os.Remove,
}

// ReadFileLimited reads at most maxSize bytes from path.
// A missing file is reported with an error satisfying os.IsNotExist.
func ReadFileLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, path, maxSize)
	}
	return data, nil
}

// AtomicWriteFile replaces path with data. Readers observe either the old
// content or the new content, never a partial write. Missing parent
// directories are created.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return osOps.atomicWrite(path, data, perm)
}

func (ops fsOps) atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := ops.mkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := ops.createTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = ops.remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ops.rename(tmpPath, path); err != nil {
		_ = ops.remove(tmpPath)
		committed = true
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}

// AppendFile appends data to path, creating it (and its parent directory)
// with perm when missing.
func AppendFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm) // #nosec G304 -- path comes from configuration
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
