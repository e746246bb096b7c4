package efs

import (
	"encoding/binary"
	"testing"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/testhelper"
	"github.com/efsfs/go-efs/volume"
)

// image is a small in-memory EFS partition used to exercise the decoders
// against hand-crafted bytes instead of a real disk image.
type image struct {
	t   *testing.T
	buf []byte
}

// newImage allocates a zeroed partition of nBBs Basic Blocks.
func newImage(t *testing.T, nBBs int) *image {
	t.Helper()
	return &image{t: t, buf: make([]byte, nBBs*volume.BBSize)}
}

func (im *image) bb(n int) []byte {
	return im.buf[n*volume.BBSize : (n+1)*volume.BBSize]
}

// These constants give the geometry every test in this package uses:
// 4 BBs of inodes per CG (16 inodes/cg), one CG starting at BB 2.
const (
	testFirstCGBB = 2
	testCGSizeBBs = 20
	testCGInoBBs  = 4
)

func (im *image) writeSuperblock(blkFree, inoFree int32) {
	b := im.bb(1)
	binary.BigEndian.PutUint32(b[0:4], uint32(int32(len(im.buf)/volume.BBSize)))
	binary.BigEndian.PutUint32(b[4:8], testFirstCGBB)
	binary.BigEndian.PutUint32(b[8:12], testCGSizeBBs)
	binary.BigEndian.PutUint16(b[12:14], testCGInoBBs)
	binary.BigEndian.PutUint16(b[18:20], 1)
	binary.BigEndian.PutUint32(b[28:32], superblockMagicNew)
	binary.BigEndian.PutUint32(b[48:52], uint32(blkFree))
	binary.BigEndian.PutUint32(b[52:56], uint32(inoFree))
}

// writeInode encodes an on-disk inode at the location the test geometry
// above places ino at, with up to 12 direct extents.
func (im *image) writeInode(ino uint32, mode uint16, size int32, extents []Extent) {
	sb := &Superblock{FirstCGBB: testFirstCGBB, CGSizeBBs: testCGSizeBBs, InosPerCG: int32(testCGInoBBs) * inodesPerBB}
	loc := sb.inodeToLocation(ino)
	b := im.bb(int(loc.block))[loc.byteOfs : loc.byteOfs+inodeSize]

	binary.BigEndian.PutUint16(b[0:2], mode)
	binary.BigEndian.PutUint16(b[2:4], 1) // nlink
	binary.BigEndian.PutUint32(b[8:12], uint32(size))
	binary.BigEndian.PutUint16(b[28:30], uint16(len(extents)))

	if len(extents) > directExtents {
		im.t.Fatalf("writeInode: test helper only supports direct extents, got %d", len(extents))
	}
	for i, e := range extents {
		off := inodeUnionOffset + i*odExtentSize
		ext1 := e.Bn & 0x00FFFFFF
		ext2 := (e.Len << 24) | (e.Offset & 0x00FFFFFF)
		binary.BigEndian.PutUint32(b[off:off+4], ext1)
		binary.BigEndian.PutUint32(b[off+4:off+8], ext2)
	}
}

// writeDirBlock encodes a directory BB at bb containing entries in
// slot order; entry bytes are packed from the end of the block toward
// the fixed header.
func (im *image) writeDirBlock(bb int, entries []DirEntry) {
	b := im.bb(bb)
	binary.BigEndian.PutUint16(b[0:2], dirBlockMagic)
	b[dirFirstOffset] = 0
	b[dirSlotsOffset] = byte(len(entries))

	cursor := dirSpaceOffset + dirSpaceLen
	for i, e := range entries {
		entrySize := 4 + 1 + len(e.Name)
		cursor -= entrySize
		cursor -= cursor % 2 // keep the space[] encoding (byteOfs/2) exact
		binary.BigEndian.PutUint32(b[cursor:cursor+4], e.Ino)
		b[cursor+4] = byte(len(e.Name))
		copy(b[cursor+5:cursor+5+len(e.Name)], e.Name)
		b[dirSpaceOffset+i] = byte(cursor / 2)
	}
}

// writeBlock copies data verbatim into BB bb, for raw file content.
func (im *image) writeBlock(bb int, data []byte) {
	copy(im.bb(bb), data)
}

// writeODExtent packs one on-disk extent descriptor (magic 0) at byte
// offset off within buf.
func writeODExtent(buf []byte, off int, bn, length, offset uint32) {
	ext1 := bn & 0x00FFFFFF
	ext2 := (length << 24) | (offset & 0x00FFFFFF)
	binary.BigEndian.PutUint32(buf[off:off+4], ext1)
	binary.BigEndian.PutUint32(buf[off+4:off+8], ext2)
}

func (im *image) storage() backend.Storage {
	buf := im.buf
	return &testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			if offset >= int64(len(buf)) {
				return 0, nil
			}
			n := copy(b, buf[offset:])
			return n, nil
		},
	}
}
