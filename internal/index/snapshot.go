package index

import (
	"time"

	"github.com/atalaya-security/riskguard/internal/domain"
)

// SnapshotVersion is the persisted schema version. Bump on incompatible
// layout changes; old snapshots are then treated as absent and rebuilt.
const SnapshotVersion = "1.0"

// EmbeddingRecord is the persisted unit of the vector index: one chunk,
// its vector, and its metadata. Records are never partially updated.
type EmbeddingRecord struct {
	ID       string               `json:"id"`
	Vector   []float32            `json:"vector"`
	Content  string               `json:"content"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}

// CollectionMetadata describes a snapshot at the collection level.
type CollectionMetadata struct {
	Description    string `json:"description"`
	Version        string `json:"version"`
	Language       string `json:"language"`
	Domain         string `json:"domain"`
	Frameworks     string `json:"frameworks"`
	EmbeddingModel string `json:"embedding_model"`
}

// DefaultCollectionMetadata returns the collection tags for the security
// knowledge base.
func DefaultCollectionMetadata(embeddingModel string) CollectionMetadata {
	return CollectionMetadata{
		Description:    "Riskguard security knowledge base",
		Version:        SnapshotVersion,
		Language:       "en",
		Domain:         "cybersecurity",
		Frameworks:     "MAGERIT, OCTAVE, ISO27001, NIST",
		EmbeddingModel: embeddingModel,
	}
}

// Snapshot is the persisted state of the vector index for one collection.
type Snapshot struct {
	Collection string             `json:"collection"`
	Metadata   CollectionMetadata `json:"metadata"`
	BuiltAt    time.Time          `json:"built_at"`
	Records    []EmbeddingRecord  `json:"records"`
}

// Stats summarizes the records held by a snapshot.
type Stats struct {
	RecordCount    int                         `json:"record_count"`
	Collection     string                      `json:"collection"`
	DocumentTypes  map[domain.DocumentType]int `json:"document_types"`
	Languages      []string                    `json:"languages"`
	EmbeddingModel string                      `json:"embedding_model"`
	BuiltAt        time.Time                   `json:"built_at"`
}

// Stats computes the record histogram for the snapshot.
func (s *Snapshot) Stats() Stats {
	stats := Stats{
		RecordCount:    len(s.Records),
		Collection:     s.Collection,
		DocumentTypes:  make(map[domain.DocumentType]int),
		EmbeddingModel: s.Metadata.EmbeddingModel,
		BuiltAt:        s.BuiltAt,
	}

	seen := make(map[string]bool)
	for _, rec := range s.Records {
		stats.DocumentTypes[rec.Metadata.DocumentType]++
		if lang := rec.Metadata.Language; lang != "" && !seen[lang] {
			seen[lang] = true
			stats.Languages = append(stats.Languages, lang)
		}
	}
	return stats
}

// Find returns the record with the given id, if present.
func (s *Snapshot) Find(id string) (EmbeddingRecord, bool) {
	for _, rec := range s.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return EmbeddingRecord{}, false
}
