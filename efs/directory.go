package efs

import (
	"bytes"
	"encoding/binary"

	"github.com/efsfs/go-efs/efserr"
	"github.com/efsfs/go-efs/volume"
)

const (
	dirBlockMagic = 0xBEEF

	dirFirstOffset = 2
	dirSlotsOffset = 3
	dirSpaceOffset = 4
	dirSpaceLen    = 508

	// MaxDirSlots is MAX_SLOTS = floor(508/7), the largest slot count
	// readdir's offset encoding can address.
	MaxDirSlots = dirSpaceLen / 7
	// DirOffsetMod is MOD = MAX_SLOTS+1, the modulus readdir's
	// bb*(MAX_SLOTS+1)+slot offset encoding uses.
	DirOffsetMod = MaxDirSlots + 1
)

// DirBlock is a decoded directory BB: its slot table plus the raw bytes
// entries are parsed out of.
type DirBlock struct {
	raw   []byte
	slots int
}

// DecodeDirBlock validates the magic of a directory BB and exposes its
// slot table for lookup and iteration.
func DecodeDirBlock(buf []byte) (*DirBlock, error) {
	if len(buf) != volume.BBSize {
		return nil, efserr.New(efserr.Invalid, "directory block must be %d bytes, got %d", volume.BBSize, len(buf))
	}
	magic := binary.BigEndian.Uint16(buf[0:2])
	if magic != dirBlockMagic {
		return nil, efserr.New(efserr.Invalid, "bad directory block magic 0x%x", magic)
	}
	slots := int(buf[dirSlotsOffset])
	return &DirBlock{raw: buf, slots: slots}, nil
}

// Slots reports the number of slot-table entries in this block.
func (d *DirBlock) Slots() int {
	return d.slots
}

// entryAt parses the directory entry at the given slot's byte offset:
// ino (u32), namelen (u8), name bytes.
func (d *DirBlock) entryAt(byteOfs int) (ino uint32, name []byte, ok bool) {
	if byteOfs <= 0 || byteOfs+5 > len(d.raw) {
		return 0, nil, false
	}
	ino = binary.BigEndian.Uint32(d.raw[byteOfs : byteOfs+4])
	namelen := int(d.raw[byteOfs+4])
	start := byteOfs + 5
	if start+namelen > len(d.raw) {
		return 0, nil, false
	}
	return ino, d.raw[start : start+namelen], true
}

// slotByteOffset returns the byte offset of the i-th slot's entry, or 0
// if the slot is empty/deleted.
func (d *DirBlock) slotByteOffset(i int) int {
	return int(d.raw[dirSpaceOffset+i]) * 2
}

// LookupInBlock performs the linear scan described in §4.6: compare by
// namelen first, then by exact bytes, returning NOT_FOUND on miss.
func (d *DirBlock) LookupInBlock(name string) (uint32, error) {
	nameBytes := []byte(name)
	for i := 0; i < d.slots; i++ {
		ofs := d.slotByteOffset(i)
		if ofs == 0 {
			continue
		}
		ino, entryName, ok := d.entryAt(ofs)
		if !ok {
			continue
		}
		if len(entryName) != len(nameBytes) {
			continue
		}
		if bytes.Equal(entryName, nameBytes) {
			return ino, nil
		}
	}
	return 0, efserr.New(efserr.NotFound, "name %q not found in directory block", name)
}

// DirEntry is a name/inode pair read out of a directory block.
type DirEntry struct {
	Ino  uint32
	Name string
}

// GetEntry returns a copy of the slot-th entry, or NOT_FOUND if the slot
// index is out of range or empty.
func (d *DirBlock) GetEntry(slot int) (DirEntry, error) {
	if slot < 0 || slot >= d.slots {
		return DirEntry{}, efserr.New(efserr.NotFound, "slot %d out of range", slot)
	}
	ofs := d.slotByteOffset(slot)
	if ofs == 0 {
		return DirEntry{}, efserr.New(efserr.NotFound, "slot %d is empty", slot)
	}
	ino, name, ok := d.entryAt(ofs)
	if !ok {
		return DirEntry{}, efserr.New(efserr.Invalid, "slot %d has a malformed entry", slot)
	}
	return DirEntry{Ino: ino, Name: string(name)}, nil
}
