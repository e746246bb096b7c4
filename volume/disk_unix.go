//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package volume

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/efsfs/go-efs/backend"
)

const blkgetsize64 = 0x80081272

// blockDeviceSize returns the size in bytes of the block device backing
// st. Regular files report their size via Stat(); real block devices
// report zero there, so this issues a BLKGETSIZE64 ioctl on the
// underlying file descriptor instead.
func blockDeviceSize(st backend.Storage) (int64, error) {
	info, err := st.Stat()
	if err != nil {
		return 0, fmt.Errorf("could not stat backing storage: %w", err)
	}

	if info.Mode()&os.ModeDevice == 0 {
		return info.Size(), nil
	}

	osFile, err := st.Sys()
	if err != nil {
		return 0, fmt.Errorf("block device has no underlying *os.File: %w", err)
	}

	size, err := unix.IoctlGetUint64(int(osFile.Fd()), blkgetsize64)
	if err != nil {
		return 0, fmt.Errorf("BLKGETSIZE64 ioctl failed: %w", err)
	}

	return int64(size), nil
}
