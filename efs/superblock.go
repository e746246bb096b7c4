// Package efs decodes the EFS superblock, inodes, extents and directory
// blocks that live inside the partition volume.Header selects, and
// resolves paths against them.
package efs

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/efserr"
	"github.com/efsfs/go-efs/util"
	"github.com/efsfs/go-efs/volume"
)

const (
	superblockMagicOld = 0x072959
	superblockMagicNew = 0x07295A

	// superblockBB is the BB, relative to the start of the partition,
	// the superblock lives at.
	superblockBB = 1

	// inodeSize is the on-disk size of a single inode record.
	inodeSize = 128
	// inodesPerBB is the number of 128-byte inode records per 512-byte BB.
	inodesPerBB = volume.BBSize / inodeSize

	// RootIno is the inode number of the filesystem root directory.
	RootIno = 2
)

// Superblock holds the decoded EFS superblock fields needed to locate
// inodes and report filesystem geometry.
type Superblock struct {
	SizeBBs    int32
	FirstCGBB  int32
	CGSizeBBs  int32
	CGInoBBs   int16
	NCG        int16
	BlkFree    int32
	InoFree    int32
	Magic      int32
	Fname      [6]byte
	Fpack      [6]byte
	Checksum   int32
	InosPerCG  int32
}

// readSuperblock reads and validates the superblock at BB 1 of st.
func readSuperblock(st backend.Storage) (*Superblock, error) {
	buf := make([]byte, volume.BBSize)
	if err := readFullAt(st, int64(superblockBB)*volume.BBSize, buf); err != nil {
		return nil, err
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("efs: raw superblock at BB %d:\n%s", superblockBB,
			util.DumpByteSlice(buf, 16, true, true, false, nil))
	}

	sb := &Superblock{
		SizeBBs:   int32(binary.BigEndian.Uint32(buf[0:4])),
		FirstCGBB: int32(binary.BigEndian.Uint32(buf[4:8])),
		CGSizeBBs: int32(binary.BigEndian.Uint32(buf[8:12])),
		CGInoBBs:  int16(binary.BigEndian.Uint16(buf[12:14])),
		NCG:       int16(binary.BigEndian.Uint16(buf[18:20])),
		Magic:     int32(binary.BigEndian.Uint32(buf[28:32])),
		BlkFree:   int32(binary.BigEndian.Uint32(buf[48:52])),
		InoFree:   int32(binary.BigEndian.Uint32(buf[52:56])),
		Checksum:  int32(binary.BigEndian.Uint32(buf[88:92])),
	}
	copy(sb.Fname[:], buf[32:38])
	copy(sb.Fpack[:], buf[38:44])

	if sb.Magic != superblockMagicOld && sb.Magic != superblockMagicNew {
		return nil, efserr.New(efserr.Invalid, "bad superblock magic 0x%x", uint32(sb.Magic))
	}

	sb.InosPerCG = int32(sb.CGInoBBs) * inodesPerBB
	if sb.InosPerCG <= 0 {
		return nil, efserr.New(efserr.Invalid, "superblock has non-positive inodes-per-cg")
	}

	return sb, nil
}

// location is the on-disk position of an inode record: the BB it lives
// in and the byte offset of its 128-byte slot within that BB.
type location struct {
	block   int64
	byteOfs int
}

// inodeToLocation implements the C3 identity: given an inode number,
// derive the BB and in-block byte offset of its on-disk record.
func (sb *Superblock) inodeToLocation(ino uint32) location {
	cg := int32(ino) / sb.InosPerCG
	cgBBOfs := (int32(ino) % sb.InosPerCG) / inodesPerBB
	block := sb.FirstCGBB + cg*sb.CGSizeBBs + cgBBOfs
	slot := int32(ino) % inodesPerBB
	return location{
		block:   int64(block),
		byteOfs: int(slot) * inodeSize,
	}
}

// readFullAt performs a positioned read, looping on partial reads and
// classifying EOF/error conditions as efserr.IO, mirroring the retry
// loop the underlying volume read path uses.
func readFullAt(st backend.Storage, offset int64, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := st.ReadAt(buf[total:], offset+int64(total))
		if n > 0 {
			total += n
		}
		if err != nil {
			return efserr.Wrap(efserr.IO, err, "short read at offset %d", offset)
		}
		if n == 0 {
			return efserr.New(efserr.IO, "unexpected EOF at offset %d", offset)
		}
	}
	return nil
}
