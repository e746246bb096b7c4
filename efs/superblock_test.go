package efs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSuperblockBadMagic(t *testing.T) {
	im := newImage(t, 8)
	_, err := readSuperblock(im.storage())
	require.Error(t, err)
}

func TestReadSuperblockValid(t *testing.T) {
	im := newImage(t, 8)
	im.writeSuperblock(100, 50)

	sb, err := readSuperblock(im.storage())
	require.NoError(t, err)
	require.EqualValues(t, testFirstCGBB, sb.FirstCGBB)
	require.EqualValues(t, testCGSizeBBs, sb.CGSizeBBs)
	require.EqualValues(t, testCGInoBBs, sb.CGInoBBs)
	require.EqualValues(t, 100, sb.BlkFree)
	require.EqualValues(t, 50, sb.InoFree)
	require.EqualValues(t, int32(testCGInoBBs)*inodesPerBB, sb.InosPerCG)
}

// TestInodeToLocationRoundTrip exercises invariant 1 from the design:
// the inode index reconstructed from (block, slot) equals ino.
func TestInodeToLocationRoundTrip(t *testing.T) {
	sb := &Superblock{FirstCGBB: testFirstCGBB, CGSizeBBs: testCGSizeBBs, InosPerCG: int32(testCGInoBBs) * inodesPerBB}

	for _, ino := range []uint32{0, 1, 2, 3, 4, 15, 16, 17, 63, 200} {
		loc := sb.inodeToLocation(ino)

		cg := (loc.block - int64(sb.FirstCGBB)) / int64(sb.CGSizeBBs)
		cgBBOfs := (loc.block - int64(sb.FirstCGBB)) % int64(sb.CGSizeBBs)
		slot := loc.byteOfs / inodeSize

		reconstructed := uint32(cg)*uint32(sb.InosPerCG) + uint32(cgBBOfs)*uint32(inodesPerBB) + uint32(slot)
		require.Equalf(t, ino, reconstructed, "round trip failed for ino %d, loc=%+v", ino, loc)
	}
}
