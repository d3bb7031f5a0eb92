package ingest

import (
	"log"

	"github.com/atalaya-security/riskguard/internal/domain"
)

// SplitDocuments divides documents into overlapping chunks and attaches
// per-chunk metadata: provenance, extracted keywords, and semantic type.
func SplitDocuments(documents []domain.Document, cfg SplitConfig) []domain.Chunk {
	splitter := NewSplitter(cfg)

	var chunks []domain.Chunk
	for _, doc := range documents {
		pieces := splitter.Split(doc.Content)

		for i, piece := range pieces {
			chunks = append(chunks, domain.Chunk{
				ID:      domain.NewChunkID(doc.Filename, i),
				Content: piece.Text,
				Metadata: domain.ChunkMetadata{
					Filename:     doc.Filename,
					DocumentType: doc.Type,
					ChunkIndex:   i,
					TotalChunks:  len(pieces),
					Keywords:     ExtractKeywords(piece.Text),
					ChunkType:    ClassifyChunk(piece.Text),
					StartOffset:  piece.Start,
					Language:     doc.Language,
				},
			})
		}
	}

	log.Printf("ingest: created %d chunks from %d documents", len(chunks), len(documents))
	return chunks
}

// CorpusStats summarizes a loaded document set.
type CorpusStats struct {
	TotalDocuments    int                         `json:"total_documents"`
	TotalCharacters   int                         `json:"total_characters"`
	AvgDocumentLength int                         `json:"avg_document_length"`
	DocumentTypes     map[domain.DocumentType]int `json:"document_types"`
	Languages         []string                    `json:"languages"`
}

// Summarize computes corpus statistics for a document set.
func Summarize(documents []domain.Document) CorpusStats {
	stats := CorpusStats{
		DocumentTypes: make(map[domain.DocumentType]int),
	}
	if len(documents) == 0 {
		return stats
	}

	seen := make(map[string]bool)
	for _, doc := range documents {
		stats.TotalDocuments++
		stats.TotalCharacters += doc.ContentLength
		stats.DocumentTypes[doc.Type]++
		if !seen[doc.Language] {
			seen[doc.Language] = true
			stats.Languages = append(stats.Languages, doc.Language)
		}
	}
	stats.AvgDocumentLength = stats.TotalCharacters / stats.TotalDocuments
	return stats
}
