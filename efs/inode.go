package efs

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/efserr"
	"github.com/efsfs/go-efs/util"
	"github.com/efsfs/go-efs/volume"
)

const (
	// inodeUnionOffset is the byte offset of the 96-byte di_u union
	// (extents/symlink/device) within the 128-byte on-disk inode.
	inodeUnionOffset = 32

	flagBadFile = 1 << 0

	modeIFMT  = 0170000
	modeIFDIR = 0040000
	modeIFREG = 0100000
	modeIFLNK = 0120000
)

// Stat is the subset of POSIX stat fields this driver derives from an
// on-disk inode.
type Stat struct {
	Mode    uint16
	Nlink   int16
	Uid     uint16
	Gid     uint16
	Size    int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Blksize int32
	Blocks  int64
}

// Inode is the in-core representation of an EFS inode: its decoded
// fixed fields, derived stat snapshot, and materialised extent list. It
// is immutable after construction except for the BadFile flag.
type Inode struct {
	Num     uint32
	Stat    Stat
	Gen     int32
	Version uint8

	Extents              []Extent
	BlocksIncludingHoles uint32
	AllocatedBlocks      uint32

	BadFile bool
}

// IsDir reports whether this inode names a directory.
func (i *Inode) IsDir() bool {
	return i.Stat.Mode&modeIFMT == modeIFDIR
}

// IsSymlink reports whether this inode names a symbolic link. Resolving
// the link's target is out of scope (spec.md's Non-goals); callers that
// need the raw target bytes read them from the inode's on-disk union the
// same way loadExtents does for a regular file's extent list.
func (i *Inode) IsSymlink() bool {
	return i.Stat.Mode&modeIFMT == modeIFLNK
}

// Store is the shared, at-most-one-construction inode cache described
// in §4.4 and §5: concurrent get() calls for the same inode number
// never race to build two in-core copies.
type Store struct {
	st backend.Storage
	sb *Superblock

	mu    sync.Mutex
	cache map[uint32]*Inode
}

// NewStore creates an inode store reading inodes from st (the
// partition-relative backend.Storage) using sb's geometry.
func NewStore(st backend.Storage, sb *Superblock) *Store {
	return &Store{
		st:    st,
		sb:    sb,
		cache: make(map[uint32]*Inode),
	}
}

// Get returns the cached in-core inode for ino, constructing it on
// first access. A failure that occurs while loading extents does not
// fail Get: the inode is still cached, flagged BadFile.
func (s *Store) Get(ino uint32) (*Inode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in, ok := s.cache[ino]; ok {
		return in, nil
	}

	in, err := s.construct(ino)
	if err != nil {
		return nil, err
	}
	s.cache[ino] = in
	return in, nil
}

func (s *Store) construct(ino uint32) (*Inode, error) {
	loc := s.sb.inodeToLocation(ino)
	raw := make([]byte, inodeSize)
	if err := readFullAt(s.st, loc.block*volume.BBSize+int64(loc.byteOfs), raw); err != nil {
		return nil, err
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("efs: raw inode %d at BB %d, byte %d:\n%s", ino, loc.block, loc.byteOfs,
			util.DumpByteSlice(raw, 16, true, true, false, nil))
	}

	in := &Inode{Num: ino}
	in.Stat.Mode = binary.BigEndian.Uint16(raw[0:2])
	in.Stat.Nlink = int16(binary.BigEndian.Uint16(raw[2:4]))
	in.Stat.Uid = binary.BigEndian.Uint16(raw[4:6])
	in.Stat.Gid = binary.BigEndian.Uint16(raw[6:8])
	in.Stat.Size = int64(int32(binary.BigEndian.Uint32(raw[8:12])))
	in.Stat.Atime = time.Unix(int64(binary.BigEndian.Uint32(raw[12:16])), 0).UTC()
	in.Stat.Mtime = time.Unix(int64(binary.BigEndian.Uint32(raw[16:20])), 0).UTC()
	in.Stat.Ctime = time.Unix(int64(binary.BigEndian.Uint32(raw[20:24])), 0).UTC()
	in.Gen = int32(binary.BigEndian.Uint32(raw[24:28]))
	nextents := int16(binary.BigEndian.Uint16(raw[28:30]))
	in.Version = raw[30]
	in.Stat.Blksize = volume.BBSize
	in.Stat.Blocks = in.Stat.Size/512 + 1

	exts, err := loadExtents(s.st, raw, nextents, ino)
	if err != nil {
		in.BadFile = true
	} else {
		in.Extents = exts
		in.BlocksIncludingHoles, in.AllocatedBlocks = extentTotals(exts)
	}

	return in, nil
}

// badFileErr is what getattr/open return for an inode whose extents
// failed to load, per §7's BAD_FILE rule.
func badFileErr(ino uint32) error {
	return efserr.New(efserr.IO, "inode %d is marked BAD_FILE", ino)
}
