package efs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInodeIsDirAndIsSymlink(t *testing.T) {
	dir := &Inode{Stat: Stat{Mode: modeIFDIR}}
	require.True(t, dir.IsDir())
	require.False(t, dir.IsSymlink())

	link := &Inode{Stat: Stat{Mode: modeIFLNK}}
	require.False(t, link.IsDir())
	require.True(t, link.IsSymlink())

	reg := &Inode{Stat: Stat{Mode: modeIFREG}}
	require.False(t, reg.IsDir())
	require.False(t, reg.IsSymlink())
}
