package index

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

const snapshotFilename = "snapshot.json"

// DiskStore persists snapshots as JSON files under a root directory, one
// subdirectory per collection.
type DiskStore struct {
	root string
}

// NewDiskStore creates a store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: dir}
}

// Root returns the store's base directory.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) snapshotPath(collection string) string {
	return filepath.Join(s.root, collection, snapshotFilename)
}

// Save writes the snapshot durably. The write is atomic: a temp file is
// renamed over the previous snapshot so readers never observe a partial
// index.
func (s *DiskStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(s.root, snap.Collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, snapshotFilename+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.snapshotPath(snap.Collection))
}

// Load reads a persisted snapshot. Missing, empty, or corrupt snapshots
// are reported as absent so the caller rebuilds instead of failing.
func (s *DiskStore) Load(ctx context.Context, collection string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.snapshotPath(collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("index: snapshot for collection %q is corrupt, treating as absent: %v", collection, err)
		return nil, nil
	}
	if len(snap.Records) == 0 {
		log.Printf("index: snapshot for collection %q is empty, treating as absent", collection)
		return nil, nil
	}

	return &snap, nil
}

// Exists reports whether a persisted snapshot file is present, without
// decoding it.
func (s *DiskStore) Exists(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.snapshotPath(collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the persisted snapshot for a collection.
func (s *DiskStore) Delete(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.RemoveAll(filepath.Join(s.root, collection))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
