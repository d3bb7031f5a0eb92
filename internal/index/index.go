package index

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/atalaya-security/riskguard/internal/domain"
)

const (
	// buildBatchSize is the number of chunks embedded per provider call
	// during an index build.
	buildBatchSize = 64
	// buildWorkers bounds the number of concurrent embedding batches.
	buildWorkers = 4
)

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimensions() int
}

// Index owns the embedding records for one collection: it builds them from
// chunks, persists them through a Store, and serves the loaded snapshot to
// readers. Mutations are serialized per collection; reads run concurrently
// against the immutable in-memory snapshot.
type Index struct {
	store      Store
	embedder   Embedder
	collection string

	mu   sync.RWMutex
	snap *Snapshot
}

// New creates an index for the named collection.
func New(store Store, embedder Embedder, collection string) *Index {
	return &Index{
		store:      store,
		embedder:   embedder,
		collection: collection,
	}
}

// Collection returns the collection name this index serves.
func (ix *Index) Collection() string {
	return ix.collection
}

// Snapshot returns the current in-memory snapshot, or nil before any
// build or load has succeeded.
func (ix *Index) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snap
}

// Build embeds every chunk and persists a fresh snapshot. Batches run in
// parallel to bound indexing latency; the persist itself is serialized per
// collection. No partial index is ever persisted.
func (ix *Index) Build(ctx context.Context, chunks []domain.Chunk) (*Snapshot, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrNoChunks
	}

	vectors, err := ix.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	records := make([]EmbeddingRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = EmbeddingRecord{
			ID:       chunk.ID,
			Vector:   vectors[i],
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		}
	}

	snap := &Snapshot{
		Collection: ix.collection,
		Metadata:   DefaultCollectionMetadata(ix.embedder.Model()),
		BuiltAt:    time.Now().UTC(),
		Records:    records,
	}

	if err := ix.persist(ctx, snap); err != nil {
		return nil, err
	}

	log.Printf("index: built collection %q with %d records", ix.collection, len(records))
	return snap, nil
}

// Load restores a previously persisted snapshot without recomputation.
// Returns nil when no usable snapshot exists.
func (ix *Index) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := ix.store.Load(ctx, ix.collection)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()

	log.Printf("index: loaded collection %q with %d records", ix.collection, len(snap.Records))
	return snap, nil
}

// ShouldRebuild reports whether the snapshot is stale: absent, or older
// than any file under docsDir. Comparison uses file modification times
// only, so touching a file without changing content forces a rebuild.
func (ix *Index) ShouldRebuild(docsDir string) bool {
	snap := ix.Snapshot()
	if snap == nil {
		return true
	}

	stale := false
	_ = filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(snap.BuiltAt) {
			log.Printf("index: %s modified after snapshot build, rebuild required", d.Name())
			stale = true
			return filepath.SkipAll
		}
		return nil
	})
	return stale
}

// Add embeds new chunks and appends them to the existing snapshot,
// re-persisting afterward.
func (ix *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return domain.ErrNoChunks
	}
	current := ix.Snapshot()
	if current == nil {
		return domain.ErrNotReady
	}

	vectors, err := ix.embedAll(ctx, chunks)
	if err != nil {
		return err
	}

	next := &Snapshot{
		Collection: current.Collection,
		Metadata:   current.Metadata,
		BuiltAt:    time.Now().UTC(),
		Records:    make([]EmbeddingRecord, 0, len(current.Records)+len(chunks)),
	}
	next.Records = append(next.Records, current.Records...)
	for i, chunk := range chunks {
		next.Records = append(next.Records, EmbeddingRecord{
			ID:       chunk.ID,
			Vector:   vectors[i],
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		})
	}

	return ix.persist(ctx, next)
}

// Update replaces one record by id. The underlying stores have no partial
// update primitive, so this is a delete-then-insert.
func (ix *Index) Update(ctx context.Context, id string, chunk domain.Chunk) error {
	current := ix.Snapshot()
	if current == nil {
		return domain.ErrNotReady
	}

	vectors, err := ix.embedAll(ctx, []domain.Chunk{chunk})
	if err != nil {
		return err
	}

	next := &Snapshot{
		Collection: current.Collection,
		Metadata:   current.Metadata,
		BuiltAt:    time.Now().UTC(),
		Records:    make([]EmbeddingRecord, 0, len(current.Records)),
	}
	for _, rec := range current.Records {
		if rec.ID != id {
			next.Records = append(next.Records, rec)
		}
	}
	next.Records = append(next.Records, EmbeddingRecord{
		ID:       chunk.ID,
		Vector:   vectors[0],
		Content:  chunk.Content,
		Metadata: chunk.Metadata,
	})

	return ix.persist(ctx, next)
}

// SnapshotPersisted reports whether the durable snapshot still exists.
// Health checks use this to detect out-of-band deletion.
func (ix *Index) SnapshotPersisted(ctx context.Context) bool {
	ok, err := ix.store.Exists(ctx, ix.collection)
	if err != nil {
		log.Printf("index: snapshot existence check failed: %v", err)
		return false
	}
	return ok
}

// Drop removes the persisted snapshot and clears the in-memory state.
func (ix *Index) Drop(ctx context.Context) error {
	lock := lockCollection(ix.collection)
	defer lock.Unlock()

	if err := ix.store.Delete(ctx, ix.collection); err != nil {
		return err
	}
	ix.mu.Lock()
	ix.snap = nil
	ix.mu.Unlock()
	return nil
}

// Stats reports the record histogram of the current snapshot.
func (ix *Index) Stats() Stats {
	snap := ix.Snapshot()
	if snap == nil {
		model := ""
		if ix.embedder != nil {
			model = ix.embedder.Model()
		}
		return Stats{
			Collection:     ix.collection,
			DocumentTypes:  make(map[domain.DocumentType]int),
			EmbeddingModel: model,
		}
	}
	return snap.Stats()
}

func (ix *Index) persist(ctx context.Context, snap *Snapshot) error {
	lock := lockCollection(ix.collection)
	defer lock.Unlock()

	if err := ix.store.Save(ctx, snap); err != nil {
		return err
	}
	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()
	return nil
}

// embedAll embeds chunks in parallel batches, preserving input order.
func (ix *Index) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(texts); start += buildBatchSize {
		end := start + buildBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start: start, texts: texts[start:end]})
	}

	embedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))
	sem := make(chan struct{}, buildWorkers)
	errOnce := sync.Once{}
	var firstErr error
	var wg sync.WaitGroup

	for _, b := range batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(b batch) {
			defer wg.Done()
			defer func() { <-sem }()

			if embedCtx.Err() != nil {
				return
			}
			out, err := ix.embedder.EmbedTexts(embedCtx, b.texts)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			copy(vectors[b.start:], out)
		}(b)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
