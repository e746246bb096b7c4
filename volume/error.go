package volume

import (
	"github.com/efsfs/go-efs/efserr"
)

// errNotEFSVolume reports that the boot block magic did not match, so this
// is not an SGI volume header at all.
func errNotEFSVolume() error {
	return efserr.New(efserr.Invalid, "not an SGI volume header: bad magic")
}

// errNoEFSPartition reports that no partition descriptor in the volume
// header carries the EFS partition type.
func errNoEFSPartition() error {
	return efserr.New(efserr.NotFound, "volume header contains no EFS partition")
}

// errPartitionOutOfRange reports a requested partition index outside the
// fixed 16-slot descriptor table.
func errPartitionOutOfRange(requested int) error {
	return efserr.New(efserr.OutOfRange, "requested partition %d out of range [0,%d)", requested, NumPartitions)
}

// errPartitionEmpty reports that an explicitly requested partition
// descriptor carries fewer than MinPartitionBlocks blocks.
func errPartitionEmpty(requested int) error {
	return efserr.New(efserr.Invalid, "partition %d has fewer than %d blocks", requested, MinPartitionBlocks)
}
