package volume

import (
	"github.com/sirupsen/logrus"

	"github.com/efsfs/go-efs/backend"
	"github.com/efsfs/go-efs/backend/file"
)

// Volume is an opened disk image: the backing storage, its determined
// device type, and the decoded volume header once Select has run.
type Volume struct {
	Backend    backend.Storage
	DeviceType DeviceType
	Header     *Header
}

// Open opens pathName read-only, determines whether it is a plain
// image file or a real block device, reads and validates the volume
// header, and selects a partition (AutoSelect or an explicit index).
func Open(pathName string, partition int) (*Volume, error) {
	st, err := file.OpenFromPath(pathName)
	if err != nil {
		return nil, err
	}

	dt, err := DetermineDeviceType(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if dt == DeviceTypeBlockDevice {
		if size, sizeErr := blockDeviceSize(st); sizeErr == nil {
			logrus.Debugf("volume: %s is a block device of %d bytes", pathName, size)
		}
	}

	hdr, err := ReadHeader(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := hdr.Select(partition); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &Volume{Backend: st, DeviceType: dt, Header: hdr}, nil
}

// Partition returns a backend.Storage windowed onto the selected
// partition's byte range, ready to hand to efs.Open.
func (v *Volume) Partition() backend.Storage {
	return v.Header.Mount(v.Backend)
}

// Close releases the underlying backing storage.
func (v *Volume) Close() error {
	return v.Backend.Close()
}
