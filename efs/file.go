package efs

import (
	"io"

	"github.com/efsfs/go-efs/volume"
)

// File is a read-only view of an inode's data, the thing the FUSE
// adapter's open() hands back as a handle and read() operates on.
type File struct {
	mount *Mount
	inode *Inode
}

// Open resolves path and returns a File handle, the §6 open()
// contract: succeeds iff the inode is not BAD_FILE.
func (m *Mount) Open(path string) (*File, error) {
	in, err := m.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &File{mount: m, inode: in}, nil
}

// Inode returns the underlying in-core inode.
func (f *File) Inode() *Inode {
	return f.inode
}

// ReadAt implements the §6 read() callback: offset and size are
// truncated to BB granularity, the result clamped to the inode's
// logical extent, and delivered via the Extent Reader.
func (f *File) ReadAt(p []byte, offset int64) (int, error) {
	bb := uint32(offset / volume.BBSize)
	nblks := uint32(len(p) / volume.BBSize)
	if nblks == 0 {
		return 0, nil
	}

	buf := make([]byte, int64(nblks)*volume.BBSize)
	n, err := f.mount.ReadAt(f.inode, bb, nblks, buf)
	if err != nil {
		return 0, err
	}
	copy(p, buf[:n])

	if n == 0 {
		return 0, io.EOF
	}
	return int(n), nil
}
