// Package fusehost is the thin adapter between efs.Mount and the host
// kernel's FUSE callbacks. It holds no filesystem logic of its own: it
// only translates between fuse/pathfs types and the core driver's path-
// keyed operations, and maps efserr kinds onto fuse.Status codes.
package fusehost

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/nodefs"
	"github.com/hanwen/go-fuse/v2/pathfs"
	"github.com/sirupsen/logrus"

	"github.com/efsfs/go-efs/efs"
	"github.com/efsfs/go-efs/efserr"
)

// FileSystem adapts an efs.Mount to pathfs.FileSystem. Every operation
// not listed in the driver's host-callback surface is left at the
// embedded default (usually ENOSYS), since this mount is read-only.
type FileSystem struct {
	pathfs.FileSystem
	mount *efs.Mount
}

// New wraps mount as a pathfs.FileSystem.
func New(mount *efs.Mount) *FileSystem {
	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		mount:      mount,
	}
}

func hostPath(name string) string {
	if name == "" {
		return "/"
	}
	return "/" + name
}

// statusFor maps an efserr.Kind onto the fuse.Status the host expects,
// logging the failure at the configured debug level the way every
// callback failure not already surfaced as an errno is logged (§7).
func statusFor(op string, err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	logrus.Debugf("fusehost: %s: %v", op, err)
	switch efserr.KindOf(err) {
	case efserr.NotFound:
		return fuse.ENOENT
	case efserr.NotDir:
		return fuse.ENOTDIR
	case efserr.Invalid:
		return fuse.EINVAL
	case efserr.OutOfRange, efserr.OutOfMemory:
		return fuse.EIO
	default:
		return fuse.EIO
	}
}

func toFuseAttr(st efs.Stat) *fuse.Attr {
	return &fuse.Attr{
		Mode:    uint32(st.Mode),
		Nlink:   uint32(st.Nlink),
		Owner:   fuse.Owner{Uid: uint32(st.Uid), Gid: uint32(st.Gid)},
		Size:    uint64(st.Size),
		Blksize: uint32(st.Blksize),
		Blocks:  uint64(st.Blocks),
		Atime:   uint64(st.Atime.Unix()),
		Mtime:   uint64(st.Mtime.Unix()),
		Ctime:   uint64(st.Ctime.Unix()),
	}
}

// GetAttr implements the getattr() callback from §6.
func (fs *FileSystem) GetAttr(name string, _ *fuse.Context) (*fuse.Attr, fuse.Status) {
	st, err := fs.mount.Getattr(hostPath(name))
	if err != nil {
		return nil, statusFor("getattr "+name, err)
	}
	return toFuseAttr(st), fuse.OK
}

// StatFs implements the statvfs() callback from §4.9.
func (fs *FileSystem) StatFs(name string) *fuse.StatfsOut {
	snap := fs.mount.Statfs()
	return &fuse.StatfsOut{
		Blocks:  uint64(snap.Blocks),
		Bfree:   uint64(snap.Bfree),
		Bavail:  uint64(snap.Bavail),
		Files:   uint64(snap.Files),
		Ffree:   uint64(snap.Ffree),
		Bsize:   uint32(snap.Bsize),
		Frsize:  uint32(snap.Frsize),
		NameLen: 255,
	}
}

// Open implements the open() callback from §6; write flags are always
// rejected since this driver never mutates the image.
func (fs *FileSystem) Open(name string, flags uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	if flags&(fuse.O_ANYWRITE) != 0 {
		return nil, fuse.EROFS
	}
	f, err := fs.mount.Open(hostPath(name))
	if err != nil {
		return nil, statusFor("open "+name, err)
	}
	return &file{File: nodefs.NewDefaultFile(), handle: f}, fuse.OK
}

// OpenDir implements the readdir() callback from §6 by decoding the
// target directory in one pass; the MAX_SLOTS offset-encoding the core
// readdir() uses for incremental streaming is not needed here since
// pathfs hands the whole listing back at once.
func (fs *FileSystem) OpenDir(name string, _ *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	dirIno, err := fs.mount.Namei(hostPath(name))
	if err != nil {
		return nil, statusFor("opendir "+name, err)
	}
	if !dirIno.IsDir() {
		return nil, fuse.ENOTDIR
	}

	var entries []fuse.DirEntry
	err = fs.mount.Readdir(dirIno, 0, func(entryName string, st efs.Stat, _ uint64) bool {
		entries = append(entries, fuse.DirEntry{Name: entryName, Mode: uint32(st.Mode)})
		return true
	})
	if err != nil {
		return nil, statusFor("readdir "+name, err)
	}
	return entries, fuse.OK
}

// file adapts efs.File to nodefs.File; only Read and GetAttr are
// meaningful since this mount never accepts writes.
type file struct {
	nodefs.File
	handle *efs.File
}

func (f *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	n, err := f.handle.ReadAt(dest, off)
	if err != nil && n == 0 {
		return nil, statusFor("read", err)
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (f *file) GetAttr(out *fuse.Attr) fuse.Status {
	st := f.handle.Inode().Stat
	*out = *toFuseAttr(st)
	return fuse.OK
}
