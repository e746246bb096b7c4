package efs

import (
	"strings"
	"sync"

	"github.com/efsfs/go-efs/efserr"
	"github.com/efsfs/go-efs/volume"
)

// PathCache resolves absolute paths to in-core inodes, caching the full
// path string to inode identity as described in §4.8: a single lock
// covers cache consultation, resolution, and insertion, so a concurrent
// resolver either observes the cached entry or waits for it.
type PathCache struct {
	mu      sync.Mutex
	entries map[string]*Inode

	store *Store
}

// NewPathCache creates a path resolver backed by store.
func NewPathCache(store *Store) *PathCache {
	return &PathCache{
		entries: make(map[string]*Inode),
		store:   store,
	}
}

// Namei resolves an absolute path to its in-core inode, per §4.8.
func (p *PathCache) Namei(path string) (*Inode, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, efserr.New(efserr.Invalid, "path %q is not absolute", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if in, ok := p.entries[path]; ok {
		return in, nil
	}

	curIno := uint32(RootIno)
	components := strings.Split(strings.Trim(path, "/"), "/")
	if len(components) == 1 && components[0] == "" {
		components = nil
	}

	var dir *Inode
	for idx, name := range components {
		in, err := p.store.Get(curIno)
		if err != nil {
			return nil, err
		}
		dir = in
		if !dir.IsDir() {
			return nil, efserr.New(efserr.NotDir, "%q is not a directory", strings.Join(components[:idx], "/"))
		}

		ino, err := dirLookup(p.store, dir, name)
		if err != nil {
			return nil, err
		}
		curIno = ino
	}

	target, err := p.store.Get(curIno)
	if err != nil {
		return nil, err
	}

	p.entries[path] = target
	return target, nil
}

// dirLookup walks dir's directory blocks looking for name, using the
// Block Walker with a visitor that reads each block and scans its slot
// table, per §4.8 step 3.
func dirLookup(store *Store, dir *Inode, name string) (uint32, error) {
	var found uint32
	var hit bool
	var lookupErr error

	buf := make([]byte, volume.BBSize)

	err := Walk(dir, 0, 0, func(deviceBn, logicalBB uint32) Outcome {
		if readErr := readFullAt(store.st, int64(deviceBn)*volume.BBSize, buf); readErr != nil {
			lookupErr = readErr
			return Error
		}
		block, decodeErr := DecodeDirBlock(buf)
		if decodeErr != nil {
			lookupErr = decodeErr
			return Error
		}
		ino, lookErr := block.LookupInBlock(name)
		if lookErr == nil {
			found, hit = ino, true
			return Stop
		}
		if efserr.Is(lookErr, efserr.NotFound) {
			return Continue
		}
		lookupErr = lookErr
		return Error
	})

	if err != nil {
		if lookupErr != nil {
			return 0, lookupErr
		}
		return 0, err
	}
	if !hit {
		return 0, efserr.New(efserr.NotFound, "%q not found", name)
	}
	return found, nil
}
