// Command efsfuse mounts a read-only SGI EFS partition from a disk
// image or block device onto a host mountpoint via FUSE.
package main

import (
	"fmt"
	"os"

	"github.com/hanwen/go-fuse/v2/nodefs"
	"github.com/hanwen/go-fuse/v2/pathfs"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/efsfs/go-efs/efs"
	"github.com/efsfs/go-efs/fusehost"
	"github.com/efsfs/go-efs/volume"
)

const (
	exitOK    = 0
	exitError = 1
	exitHelp  = 2
)

func usage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: efsfuse --fs=<image> [--partition=N] [--debug=0..3] <mountpoint>")
	fs.PrintDefaults()
}

func run() int {
	fs := flag.NewFlagSet("efsfuse", flag.ContinueOnError)

	image := fs.String("fs", "", "path to the disk image or block device (required)")
	partition := fs.Int("partition", volume.AutoSelect, "partition index 0-15 (default: auto-select)")
	debug := fs.Int("debug", 0, "debug verbosity, 0-3")
	help := fs.BoolP("help", "h", false, "show usage")

	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		usage(fs)
		return exitHelp
	}
	if *help {
		usage(fs)
		return exitHelp
	}
	if *image == "" || fs.NArg() != 1 {
		usage(fs)
		return exitHelp
	}
	mountpoint := fs.Arg(0)

	configureLogging(*debug)

	vol, err := volume.Open(*image, *partition)
	if err != nil {
		logrus.Errorf("open %s: %v", *image, err)
		return exitError
	}
	defer vol.Close()

	mount, err := efs.Open(vol.Partition())
	if err != nil {
		logrus.Errorf("mount %s: %v", *image, err)
		return exitError
	}

	nfs := pathfs.NewPathNodeFs(fusehost.New(mount), nil)
	server, _, err := nodefs.MountRoot(mountpoint, nfs.Root(), nil)
	if err != nil {
		logrus.Errorf("mount %s at %s: %v", *image, mountpoint, err)
		return exitError
	}

	logrus.WithField("mount", mount.ID()).Infof("efsfuse: serving %s (partition %d) at %s", *image, vol.Header.Selected, mountpoint)
	server.Serve()

	return exitOK
}

func configureLogging(level int) {
	switch {
	case level <= 0:
		logrus.SetLevel(logrus.WarnLevel)
	case level == 1:
		logrus.SetLevel(logrus.InfoLevel)
	case level == 2:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.TraceLevel)
	}
}

func main() {
	os.Exit(run())
}
