package retrieve

import (
	"fmt"
	"strings"

	"github.com/atalaya-security/riskguard/internal/domain"
)

const (
	knowledgeHeader = "=== BEGIN KNOWLEDGE ==="
	knowledgeFooter = "=== END KNOWLEDGE ==="

	maxKeywordsInHeader = 5
)

// FormatForPrompt renders search results as a delimited block suitable for
// concatenation into an LLM prompt, with a per-source header line.
func FormatForPrompt(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(knowledgeHeader)

	for i, res := range results {
		fmt.Fprintf(&b, "\n\n--- Source %d: %s (%s) ---\n", i+1, titleForType(res.Metadata.DocumentType), sourceName(res.Metadata.Filename))
		if len(res.Metadata.Keywords) > 0 {
			kws := res.Metadata.Keywords
			if len(kws) > maxKeywordsInHeader {
				kws = kws[:maxKeywordsInHeader]
			}
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(kws, ", "))
		}
		b.WriteString(strings.TrimSpace(res.Content))
	}

	b.WriteString("\n\n")
	b.WriteString(knowledgeFooter)
	b.WriteString("\n")
	return b.String()
}

// Citation identifies the source behind one formatted context block.
type Citation struct {
	ID            string              `json:"id"`
	Source        string              `json:"source"`
	DocumentType  domain.DocumentType `json:"document_type"`
	ChunkID       string              `json:"chunk_id"`
	RelevanceRank int                 `json:"relevance_rank"`
}

// FormatWithCitations renders the context block with reference markers and
// returns the citation list for traceability.
func FormatWithCitations(results []domain.SearchResult) (string, []Citation) {
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	citations := make([]Citation, 0, len(results))

	b.WriteString(knowledgeHeader)
	for i, res := range results {
		citation := Citation{
			ID:            fmt.Sprintf("ref_%d", i+1),
			Source:        res.Metadata.Filename,
			DocumentType:  res.Metadata.DocumentType,
			ChunkID:       domain.NewChunkID(res.Metadata.Filename, res.Metadata.ChunkIndex),
			RelevanceRank: res.RelevanceRank,
		}
		citations = append(citations, citation)

		fmt.Fprintf(&b, "\n\n--- [%s] %s (%s) ---\n", citation.ID, titleForType(res.Metadata.DocumentType), sourceName(res.Metadata.Filename))
		b.WriteString(strings.TrimSpace(res.Content))
	}

	b.WriteString("\n\n")
	b.WriteString(knowledgeFooter)
	b.WriteString("\n\nReferences:")
	for _, c := range citations {
		fmt.Fprintf(&b, "\n[%s] %s - %s", c.ID, c.Source, c.DocumentType)
	}

	return b.String(), citations
}

func titleForType(t domain.DocumentType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "it" {
			words[i] = "IT"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sourceName(filename string) string {
	name := strings.TrimSuffix(filename, ".txt")
	return strings.TrimSuffix(name, ".md")
}
