package domain

import "fmt"

// ChunkType classifies the dominant content of a chunk.
type ChunkType string

const (
	ChunkTypeVulnerability ChunkType = "vulnerability"
	ChunkTypeControl       ChunkType = "control"
	ChunkTypeImpact        ChunkType = "impact"
	ChunkTypeMethodology   ChunkType = "methodology"
	ChunkTypeFramework     ChunkType = "framework_reference"
	ChunkTypeConceptual    ChunkType = "conceptual"
)

// ChunkMetadata carries the per-chunk provenance persisted alongside each
// embedding record.
type ChunkMetadata struct {
	Filename     string       `json:"filename"`
	DocumentType DocumentType `json:"document_type"`
	ChunkIndex   int          `json:"chunk_index"`
	TotalChunks  int          `json:"total_chunks"`
	Keywords     []string     `json:"keywords"`
	ChunkType    ChunkType    `json:"chunk_type"`
	StartOffset  int          `json:"start_offset"`
	Language     string       `json:"language"`
}

// Field resolves a metadata field by its wire name for dynamic filtering.
// Only string-valued fields participate in filters.
func (m ChunkMetadata) Field(key string) (string, bool) {
	switch key {
	case "filename":
		return m.Filename, true
	case "document_type":
		return string(m.DocumentType), true
	case "chunk_type":
		return string(m.ChunkType), true
	case "language":
		return m.Language, true
	default:
		return "", false
	}
}

// Chunk is a contiguous sub-span of a document prepared for embedding.
type Chunk struct {
	ID       string
	Content  string
	Metadata ChunkMetadata
}

// NewChunkID derives the stable chunk identifier from its parent filename
// and position.
func NewChunkID(filename string, index int) string {
	return fmt.Sprintf("%s_%d", filename, index)
}

// SearchResult is an ephemeral, query-scoped retrieval hit.
type SearchResult struct {
	Content         string        `json:"content"`
	Metadata        ChunkMetadata `json:"metadata"`
	RelevanceRank   int           `json:"relevance_rank"`
	Score           float64       `json:"score"`
	MatchedKeywords []string      `json:"matched_keywords,omitempty"`
}
