package index

import (
	"context"
	"sync"
)

// Store persists snapshots addressed by collection name.
//
// Load returns (nil, nil) when no usable snapshot exists: a missing,
// empty, or undecodable snapshot is treated as absent, never as an error.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, collection string) (*Snapshot, error)
	Exists(ctx context.Context, collection string) (bool, error)
	Delete(ctx context.Context, collection string) error
}

// collectionLocks serializes mutations per collection name. Reads do not
// take the lock; they operate on the immutable in-memory snapshot.
var collectionLocks = struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}{locks: make(map[string]*sync.Mutex)}

func lockCollection(name string) *sync.Mutex {
	collectionLocks.mu.Lock()
	lock, ok := collectionLocks.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		collectionLocks.locks[name] = lock
	}
	collectionLocks.mu.Unlock()

	lock.Lock()
	return lock
}
