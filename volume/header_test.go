package volume

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efsfs/go-efs/testhelper"
)

// buildHeaderImage returns a minimal BBSize-byte buffer containing a valid
// volume header with the given partitions installed starting at slot 0.
func buildHeaderImage(t *testing.T, parts ...Partition) []byte {
	t.Helper()
	buf := make([]byte, BBSize)
	binary.BigEndian.PutUint32(buf[0:4], bootBlockMagic)
	for i, p := range parts {
		off := partitionTableOffset + i*vhPartEntrySize
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(p.FirstBB))
		binary.BigEndian.PutUint32(buf[off+4:off+8], uint32(p.BlockCount))
		binary.BigEndian.PutUint32(buf[off+8:off+12], uint32(p.Type))
	}
	return buf
}

func storageOf(buf []byte) *testhelper.FileImpl {
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

func TestReadHeaderBadMagic(t *testing.T) {
	buf := make([]byte, BBSize)
	_, err := ReadHeader(storageOf(buf))
	require.Error(t, err)
}

func TestReadHeaderAndAutoSelect(t *testing.T) {
	buf := buildHeaderImage(t,
		Partition{FirstBB: 0, BlockCount: 100, Type: PartitionTypeWholeDisk},
		Partition{FirstBB: 100, BlockCount: 5000, Type: PartitionTypeEFS},
	)
	h, err := ReadHeader(storageOf(buf))
	require.NoError(t, err)
	require.Equal(t, int32(100), h.Partitions[1].FirstBB)

	require.NoError(t, h.Select(AutoSelect))
	require.Equal(t, 1, h.Selected)
	require.EqualValues(t, 100*BBSize, h.BaseOffset)
	require.EqualValues(t, 5000*BBSize, h.SelectedBytes)
}

func TestReadHeaderAutoSelectSkipsTooSmall(t *testing.T) {
	buf := buildHeaderImage(t,
		Partition{FirstBB: 0, BlockCount: 3, Type: PartitionTypeEFS},
		Partition{FirstBB: 3, BlockCount: 200, Type: PartitionTypeEFS},
	)
	h, err := ReadHeader(storageOf(buf))
	require.NoError(t, err)
	require.NoError(t, h.Select(AutoSelect))
	require.Equal(t, 1, h.Selected)
}

func TestReadHeaderAutoSelectNoneFound(t *testing.T) {
	buf := buildHeaderImage(t,
		Partition{FirstBB: 0, BlockCount: 200, Type: PartitionTypeWholeDisk},
	)
	h, err := ReadHeader(storageOf(buf))
	require.NoError(t, err)
	err = h.Select(AutoSelect)
	require.Error(t, err)
}

func TestSelectExplicitOutOfRange(t *testing.T) {
	buf := buildHeaderImage(t)
	h, err := ReadHeader(storageOf(buf))
	require.NoError(t, err)
	require.Error(t, h.Select(20))
}

func TestSelectExplicitTooSmall(t *testing.T) {
	buf := buildHeaderImage(t, Partition{FirstBB: 0, BlockCount: 1, Type: PartitionTypeEFS})
	h, err := ReadHeader(storageOf(buf))
	require.NoError(t, err)
	require.Error(t, h.Select(0))
}
