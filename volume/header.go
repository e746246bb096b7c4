// Package volume decodes the SGI volume header that precedes every disk
// image: the boot-block magic and the fixed 16-slot partition table, and
// selects the EFS partition a superblock should be read from.
package volume

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/efserr"
)

const (
	// BBSize is the size in bytes of a Basic Block, the unit every
	// on-disk address in an SGI volume is expressed in.
	BBSize = 512

	// bootBlockMagic is the magic value at offset 0 of a volume header.
	bootBlockMagic = 0x0BE5A941

	// NumPartitions is the fixed size of the partition descriptor table.
	NumPartitions = 16

	// PartitionTypeEFS is the p_type value of an EFS partition.
	PartitionTypeEFS = 5
	// PartitionTypeWholeDisk is the p_type value covering the whole disk.
	PartitionTypeWholeDisk = 6

	// MinPartitionBlocks is the minimum block count a partition must
	// carry to be considered for auto-selection.
	MinPartitionBlocks = 10

	// AutoSelect requests that Open scan the partition table itself
	// instead of using a caller-supplied index.
	AutoSelect = -1
)

// Partition is one decoded partition descriptor.
type Partition struct {
	FirstBB    int32
	BlockCount int32
	Type       int32
}

// IsEFS reports whether this descriptor is typed as an EFS partition.
func (p Partition) IsEFS() bool {
	return p.Type == PartitionTypeEFS
}

// Header is the decoded volume header: the partition table plus the
// chosen partition's byte extent within the image.
type Header struct {
	Partitions    [NumPartitions]Partition
	Selected      int
	BaseOffset    int64
	SelectedBytes int64
}

// vhDirEntrySize is sizeof(efs_vh_dir_t): char[8] + int32 + int32.
const vhDirEntrySize = 8 + 4 + 4

// vhPartEntrySize is sizeof(efs_vh_part_t): three big-endian int32s.
const vhPartEntrySize = 4 + 4 + 4

// numVolDirEntries is VH_VOLDIR_NUM from the volume header layout.
const numVolDirEntries = 15

// partitionTableOffset is the byte offset of h_pt within efs_vol_hdr_t:
// h_magic(4) + h_root(2) + h_swap(2) + h_bfile(16) + h_pad(48) +
// h_vd[15]*(16 bytes each).
const partitionTableOffset = 4 + 2 + 2 + 16 + 48 + numVolDirEntries*vhDirEntrySize

// ReadHeader decodes the volume header at offset 0 of st and validates
// its magic. It does not yet select a partition; call Select for that.
func ReadHeader(st backend.Storage) (*Header, error) {
	buf := make([]byte, BBSize)
	if err := readFull(st, 0, buf); err != nil {
		return nil, err
	}

	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != bootBlockMagic {
		return nil, errNotEFSVolume()
	}

	h := &Header{Selected: AutoSelect}
	for i := 0; i < NumPartitions; i++ {
		off := partitionTableOffset + i*vhPartEntrySize
		h.Partitions[i] = Partition{
			FirstBB:    int32(binary.BigEndian.Uint32(buf[off : off+4])),
			BlockCount: int32(binary.BigEndian.Uint32(buf[off+4 : off+8])),
			Type:       int32(binary.BigEndian.Uint32(buf[off+8 : off+12])),
		}
	}

	return h, nil
}

// Select validates and records the partition to mount. requested may be
// AutoSelect, in which case the first type==5 partition with at least
// MinPartitionBlocks blocks wins; otherwise requested must name a
// populated slot in [0, NumPartitions).
func (h *Header) Select(requested int) error {
	if requested == AutoSelect {
		for i, p := range h.Partitions {
			if p.BlockCount == 0 {
				continue
			}
			logrus.Debugf("volume: partition %2d start=%d blocks=%d type=%d", i, p.FirstBB, p.BlockCount, p.Type)
			if p.IsEFS() && p.BlockCount >= MinPartitionBlocks {
				return h.selectIndex(i)
			}
		}
		return errNoEFSPartition()
	}

	if requested < 0 || requested >= NumPartitions {
		return errPartitionOutOfRange(requested)
	}
	p := h.Partitions[requested]
	if !p.IsEFS() {
		logrus.Warnf("volume: partition %d has type %d, not EFS; continuing anyway", requested, p.Type)
	}
	if p.BlockCount < MinPartitionBlocks {
		return errPartitionEmpty(requested)
	}
	return h.selectIndex(requested)
}

func (h *Header) selectIndex(i int) error {
	p := h.Partitions[i]
	h.Selected = i
	h.BaseOffset = int64(p.FirstBB) * BBSize
	h.SelectedBytes = int64(p.BlockCount) * BBSize
	return nil
}

// Mount wraps st so that offset 0 is the start of the selected
// partition, the way backend.Sub is used throughout this driver.
func (h *Header) Mount(st backend.Storage) backend.Storage {
	return backend.Sub(st, h.BaseOffset, h.SelectedBytes)
}

// readFull performs a positioned read, looping until buf is full,
// failing with efserr.IO on a short read that signals EOF.
func readFull(st backend.Storage, offset int64, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := st.ReadAt(buf[total:], offset+int64(total))
		if n > 0 {
			total += n
		}
		if err != nil {
			return efserr.Wrap(efserr.IO, err, "short read at offset %d", offset+int64(total))
		}
		if n == 0 {
			return efserr.New(efserr.IO, "unexpected EOF at offset %d", offset+int64(total))
		}
	}
	return nil
}
