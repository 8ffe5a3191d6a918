package migrations

import (
	"io/fs"
	"sync"
)

var (
	mu      sync.RWMutex
	sources []fs.FS
)

// Register adds a migration filesystem to the global set. The core schema
// registers itself via init; hosts add extras (like the auth bootstrap) by
// importing the matching subpackage.
func Register(fsys fs.FS) {
	if fsys == nil {
		return
	}
	mu.Lock()
	sources = append(sources, fsys)
	mu.Unlock()
}

// Filesystems snapshots every registered migration source, in registration
// order, for handing to go-persistence-bun or another runner.
func Filesystems() []fs.FS {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]fs.FS, len(sources))
	copy(out, sources)
	return out
}
