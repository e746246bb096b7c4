package efs

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/efserr"
	"github.com/efsfs/go-efs/volume"
)

// Mount ties a partition's backend.Storage, superblock, inode store and
// path cache together, and is the entry point the host FUSE adapter
// drives. Each Mount carries a random session ID, the same way the
// source corpus tags a mounted filesystem or journal instance with a
// UUID, so log lines from concurrent mounts of the same image can be
// told apart.
type Mount struct {
	id    uuid.UUID
	st    backend.Storage
	sb    *Superblock
	store *Store
	paths *PathCache
}

// Open decodes the superblock at BB 1 of st (already wrapped to
// the selected partition's byte range by volume.Header.Mount) and
// builds the inode store and path cache on top of it.
func Open(st backend.Storage) (*Mount, error) {
	sb, err := readSuperblock(st)
	if err != nil {
		return nil, err
	}
	store := NewStore(st, sb)
	m := &Mount{
		id:    uuid.New(),
		st:    st,
		sb:    sb,
		store: store,
		paths: NewPathCache(store),
	}
	logrus.WithField("mount", m.id).Debugf("efs: mounted, %d BBs, %d free blocks, %d free inodes", sb.SizeBBs, sb.BlkFree, sb.InoFree)
	return m, nil
}

// ID returns the Mount's session identifier, for log correlation
// across the lifetime of a single mount.
func (m *Mount) ID() uuid.UUID {
	return m.id
}

// Superblock exposes the decoded superblock, mainly for Statfs and CLI
// diagnostics.
func (m *Mount) Superblock() *Superblock {
	return m.sb
}

// Namei resolves path to its in-core inode.
func (m *Mount) Namei(path string) (*Inode, error) {
	return m.paths.Namei(path)
}

// Getattr resolves path and returns its stat snapshot, failing with IO
// if the inode is BAD_FILE.
func (m *Mount) Getattr(path string) (Stat, error) {
	in, err := m.paths.Namei(path)
	if err != nil {
		return Stat{}, err
	}
	if in.BadFile {
		return Stat{}, badFileErr(in.Num)
	}
	return in.Stat, nil
}

// OpenFile resolves path and succeeds unless the inode is BAD_FILE; this
// driver never honors write flags.
func (m *Mount) OpenFile(path string) (*Inode, error) {
	in, err := m.paths.Namei(path)
	if err != nil {
		return nil, err
	}
	if in.BadFile {
		return nil, badFileErr(in.Num)
	}
	return in, nil
}

// ReadAt fills dst with nblks*512 bytes of in's logical block range
// starting at logicalBB, per the Extent Reader design in §4.5 — this is
// a from-scratch re-derivation of the source's block-copy arithmetic,
// not a port of it.
func (m *Mount) ReadAt(in *Inode, logicalBB uint32, nblks uint32, dst []byte) (uint32, error) {
	need := int64(nblks) * volume.BBSize
	if int64(len(dst)) < need {
		return 0, efserr.New(efserr.Invalid, "destination buffer too small: need %d bytes, have %d", need, len(dst))
	}
	for i := range dst[:need] {
		dst[i] = 0
	}

	if nblks == 0 {
		return 0, nil
	}
	if logicalBB >= in.BlocksIncludingHoles {
		return 0, efserr.New(efserr.OutOfRange, "read at block %d beyond inode's %d blocks", logicalBB, in.BlocksIncludingHoles)
	}
	if rem := in.BlocksIncludingHoles - logicalBB; nblks > rem {
		nblks = rem
	}

	rangeEnd := logicalBB + nblks
	for _, ext := range in.Extents {
		extEnd := ext.Offset + ext.Len
		if extEnd <= logicalBB {
			continue
		}
		if ext.Offset >= rangeEnd {
			break
		}

		start := ext.Offset
		if logicalBB > start {
			start = logicalBB
		}
		end := extEnd
		if rangeEnd < end {
			end = rangeEnd
		}

		deviceBn := ext.Bn + (start - ext.Offset)
		dstOff := int64(start-logicalBB) * volume.BBSize
		readLen := int64(end-start) * volume.BBSize

		if err := readFullAt(m.st, int64(deviceBn)*volume.BBSize, dst[dstOff:dstOff+readLen]); err != nil {
			return 0, err
		}
	}

	return nblks * volume.BBSize, nil
}

// StatfsSnapshot is the §4.9 statvfs() result.
type StatfsSnapshot struct {
	Bsize  int64
	Frsize int64
	Blocks int64
	Bfree  int64
	Bavail int64
	Ffree  int64
	Favail int64
	Files  int64
}

// Statfs returns the filesystem-wide snapshot described in §4.9. The
// files=ino_free*2 figure reproduces the source driver's behaviour; see
// the design notes for why it is almost certainly a bug that this
// driver preserves rather than silently "fixes".
func (m *Mount) Statfs() StatfsSnapshot {
	return StatfsSnapshot{
		Bsize:  volume.BBSize,
		Frsize: volume.BBSize,
		Blocks: int64(m.sb.SizeBBs),
		Bfree:  int64(m.sb.BlkFree),
		Bavail: int64(m.sb.BlkFree),
		Ffree:  int64(m.sb.InoFree),
		Favail: int64(m.sb.InoFree),
		Files:  int64(m.sb.InoFree) * 2,
	}
}

// DirEncode packs a directory BB index and in-block slot into the
// readdir offset encoding bb*(MaxDirSlots+1)+slot, per §6.
func DirEncode(bb uint32, slot int) uint64 {
	return uint64(bb)*uint64(DirOffsetMod) + uint64(slot)
}

// DirDecode splits a readdir offset back into its BB index and slot.
func DirDecode(offset uint64) (bb uint32, slot int) {
	return uint32(offset / uint64(DirOffsetMod)), int(offset % uint64(DirOffsetMod))
}

// DirFiller is invoked once per directory entry in block-then-slot
// order; returning false stops the stream early.
type DirFiller func(name string, stat Stat, nextOffset uint64) bool

// Readdir streams dir's entries starting at the given bb/slot,
// decoding each block on demand and invoking filler in slot order. End
// of directory (the walk running out of mapped blocks) is reported as
// success, matching the host callback contract in §6.
func (m *Mount) Readdir(dir *Inode, startOffset uint64, filler DirFiller) error {
	startBB, startSlot := DirDecode(startOffset)

	buf := make([]byte, volume.BBSize)
	var iterErr error

	err := Walk(dir, startBB, 0, func(deviceBn, logicalBB uint32) Outcome {
		if err := readFullAt(m.st, int64(deviceBn)*volume.BBSize, buf); err != nil {
			iterErr = err
			return Error
		}
		block, err := DecodeDirBlock(buf)
		if err != nil {
			iterErr = err
			return Error
		}

		slot := 0
		if logicalBB == startBB {
			slot = startSlot
		}
		for ; slot < block.Slots(); slot++ {
			entry, err := block.GetEntry(slot)
			if err != nil {
				continue
			}
			childInode, err := m.store.Get(entry.Ino)
			if err != nil {
				iterErr = err
				return Error
			}
			next := DirEncode(logicalBB, slot+1)
			if slot+1 >= block.Slots() {
				next = DirEncode(logicalBB+1, 0)
			}
			if !filler(entry.Name, childInode.Stat, next) {
				return Stop
			}
		}
		return Continue
	})

	if iterErr != nil {
		return iterErr
	}
	return err
}
