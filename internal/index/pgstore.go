package index

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/atalaya-security/riskguard/internal/domain"
)

// PGStore persists snapshots in Postgres with pgvector columns. It is the
// backend of choice when the index must be shared between replicas.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed snapshot store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Save replaces the collection's records and metadata in one transaction.
func (s *PGStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM embedding_records WHERE collection = $1`, snap.Collection); err != nil {
		return err
	}

	meta, err := json.Marshal(snap.Metadata)
	if err != nil {
		return err
	}
	builtAt := snap.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO collections (name, metadata, built_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET metadata = $2, built_at = $3`,
		snap.Collection, meta, builtAt,
	)
	if err != nil {
		return err
	}

	for _, rec := range snap.Records {
		recMeta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO embedding_records (collection, chunk_id, content, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5)`,
			snap.Collection, rec.ID, rec.Content, pgvector.NewVector(rec.Vector), recMeta,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Load reads the collection from Postgres. Missing or empty collections
// are reported as absent. Rows whose metadata fails to decode are skipped.
func (s *PGStore) Load(ctx context.Context, collection string) (*Snapshot, error) {
	snap := &Snapshot{Collection: collection}

	var meta []byte
	err := s.pool.QueryRow(ctx,
		`SELECT metadata, built_at FROM collections WHERE name = $1`, collection,
	).Scan(&meta, &snap.BuiltAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(meta, &snap.Metadata); err != nil {
		log.Printf("index: collection metadata for %q is corrupt, treating as absent: %v", collection, err)
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id, content, embedding, metadata
		 FROM embedding_records
		 WHERE collection = $1
		 ORDER BY chunk_id`, collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     EmbeddingRecord
			vec     pgvector.Vector
			recMeta []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Content, &vec, &recMeta); err != nil {
			return nil, err
		}
		var m domain.ChunkMetadata
		if err := json.Unmarshal(recMeta, &m); err != nil {
			log.Printf("index: skipping record %q with corrupt metadata: %v", rec.ID, err)
			continue
		}
		rec.Vector = vec.Slice()
		rec.Metadata = m
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(snap.Records) == 0 {
		return nil, nil
	}
	return snap, nil
}

// Exists reports whether the collection has any persisted records.
func (s *PGStore) Exists(ctx context.Context, collection string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM embedding_records WHERE collection = $1`, collection,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the collection and its records.
func (s *PGStore) Delete(ctx context.Context, collection string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM embedding_records WHERE collection = $1`, collection); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM collections WHERE name = $1`, collection); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
