// Package testhelper provides fakes used by package tests that need a
// backend.Storage without touching a real file.
package testhelper

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/efsfs/go-efs/backend"
)

type reader func(b []byte, offset int64) (int, error)

// FileImpl is a stub backend.Storage whose ReadAt is supplied by the test.
type FileImpl struct {
	Reader reader
}

var _ backend.Storage = (*FileImpl)(nil)

// Sys reports that this stub is never backed by a real *os.File.
func (f *FileImpl) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (f *FileImpl) Stat() (fs.FileInfo, error) {
	return nil, nil
}

func (f *FileImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *FileImpl) Close() error {
	return nil
}

// ReadAt reads at a particular offset.
func (f *FileImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// Seek is not implemented; the decoders in this module only use ReadAt.
func (f *FileImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("FileImpl does not implement Seek()")
}
