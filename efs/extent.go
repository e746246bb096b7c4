package efs

import (
	"encoding/binary"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/efserr"
	"github.com/efsfs/go-efs/volume"
)

const (
	// directExtents is the number of extent slots held inline in the
	// on-disk inode before the indirect form kicks in.
	directExtents = 12

	// odExtentSize is sizeof(efs_od_extent_t): two big-endian uint32s.
	odExtentSize = 8

	// extentsPerBB is the number of extent descriptors that fit in a
	// single indirect block.
	extentsPerBB = volume.BBSize / odExtentSize
)

// Extent is one materialised run of an inode's logical block space
// mapped onto a device BB range.
type Extent struct {
	Offset uint32 // logical BB within the file
	Bn     uint32 // starting device BB
	Len    uint32 // length in BBs, 1..255
}

// decodeODExtent splits the two packed big-endian words of an on-disk
// extent descriptor into its magic/bn and len/offset fields.
func decodeODExtent(ext1, ext2 uint32) (magic byte, bn uint32, length, offset uint32) {
	magic = byte(ext1 >> 24)
	bn = ext1 & 0x00FFFFFF
	length = ext2 >> 24
	offset = ext2 & 0x00FFFFFF
	return
}

// loadExtents materialises an inode's extent array from its raw 128-byte
// on-disk record, following the direct/indirect layout from §4.4: up to
// 12 direct slots, or an indirect chain of BBs each holding extentsPerBB
// descriptors.
func loadExtents(st backend.Storage, raw []byte, nextents int16, ino uint32) ([]Extent, error) {
	direct := raw[inodeUnionOffset : inodeUnionOffset+directExtents*odExtentSize]

	if nextents <= directExtents {
		exts := make([]Extent, 0, nextents)
		for i := 0; i < int(nextents); i++ {
			ext1 := binary.BigEndian.Uint32(direct[i*odExtentSize : i*odExtentSize+4])
			ext2 := binary.BigEndian.Uint32(direct[i*odExtentSize+4 : i*odExtentSize+8])
			magic, bn, length, offset := decodeODExtent(ext1, ext2)
			if magic != 0 {
				return nil, efserr.New(efserr.Invalid, "inode %d: extent %d has bad magic 0x%x", ino, i, magic)
			}
			exts = append(exts, Extent{Offset: offset, Bn: bn, Len: length})
		}
		return exts, nil
	}

	// Indirect layout: the first direct slot's ext2.offset field holds
	// the count of indirect BBs in use; each one is an array of
	// extentsPerBB descriptors.
	firstExt2 := binary.BigEndian.Uint32(direct[4:8])
	_, _, _, nIndirect := decodeODExtent(0, firstExt2)

	exts := make([]Extent, 0, int(nIndirect)*extentsPerBB)
	indirectBuf := make([]byte, volume.BBSize)

	for i := uint32(0); i < nIndirect; i++ {
		ext1 := binary.BigEndian.Uint32(direct[i*odExtentSize : i*odExtentSize+4])
		magic, bn, _, _ := decodeODExtent(ext1, 0)
		if magic != 0 {
			return nil, efserr.New(efserr.Invalid, "inode %d: indirect pointer %d has bad magic 0x%x", ino, i, magic)
		}

		if err := readFullAt(st, int64(bn)*volume.BBSize, indirectBuf); err != nil {
			return nil, err
		}

		for j := 0; j < extentsPerBB; j++ {
			off := j * odExtentSize
			e1 := binary.BigEndian.Uint32(indirectBuf[off : off+4])
			e2 := binary.BigEndian.Uint32(indirectBuf[off+4 : off+8])
			magic, bn, length, offset := decodeODExtent(e1, e2)
			if magic != 0 {
				return nil, efserr.New(efserr.Invalid, "inode %d: indirect extent %d/%d has bad magic 0x%x", ino, i, j, magic)
			}
			exts = append(exts, Extent{Offset: offset, Bn: bn, Len: length})
		}
	}

	// Each indirect BB is read and decoded in full, but the inode's own
	// nextents field is the source of truth for how many descriptors
	// are actually in use; the remainder of the last indirect BB is
	// unused capacity, not additional extents.
	if uint32(len(exts)) < uint32(nextents) {
		return nil, efserr.New(efserr.Invalid, "inode %d: materialised only %d extents, inode claims %d", ino, len(exts), nextents)
	}
	exts = exts[:nextents]

	return exts, nil
}

// extentTotals computes blocks_including_holes (max offset+len) and
// allocated_blocks (sum of len) across a materialised extent array.
func extentTotals(exts []Extent) (blocksIncludingHoles, allocatedBlocks uint32) {
	for _, e := range exts {
		if end := e.Offset + e.Len; end > blocksIncludingHoles {
			blocksIncludingHoles = end
		}
		allocatedBlocks += e.Len
	}
	return
}
