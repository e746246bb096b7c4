package efs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalkVisitsAscendingMappedBlocksOnly(t *testing.T) {
	in := &Inode{
		Extents: []Extent{
			{Offset: 0, Bn: 1000, Len: 2},
			{Offset: 10, Bn: 2000, Len: 1},
		},
		BlocksIncludingHoles: 11,
	}

	var seen []uint32
	err := Walk(in, 0, 0, func(deviceBn, logicalBB uint32) Outcome {
		seen = append(seen, logicalBB)
		return Continue
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 10}, seen)
}

func TestWalkStopsEarly(t *testing.T) {
	in := &Inode{Extents: []Extent{{Offset: 0, Bn: 1000, Len: 5}}}

	var seen []uint32
	err := Walk(in, 0, 0, func(deviceBn, logicalBB uint32) Outcome {
		seen = append(seen, logicalBB)
		if logicalBB == 1 {
			return Stop
		}
		return Continue
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1}, seen)
}

func TestWalkPropagatesError(t *testing.T) {
	in := &Inode{Extents: []Extent{{Offset: 0, Bn: 1000, Len: 3}}}

	err := Walk(in, 0, 0, func(deviceBn, logicalBB uint32) Outcome {
		return Error
	})
	require.Error(t, err)
}

func TestWalkRespectsStartAndLimit(t *testing.T) {
	in := &Inode{Extents: []Extent{{Offset: 0, Bn: 1000, Len: 20}}}

	var seen []uint32
	err := Walk(in, 5, 3, func(deviceBn, logicalBB uint32) Outcome {
		seen = append(seen, logicalBB)
		return Continue
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{5, 6, 7}, seen)
}
