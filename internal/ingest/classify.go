package ingest

import (
	"strings"

	"github.com/atalaya-security/riskguard/internal/domain"
)

// ClassifyDocument infers a document type from its filename. Matching is
// case-insensitive over filename substrings with a fixed priority order;
// the first rule that matches wins.
func ClassifyDocument(filename string) domain.DocumentType {
	name := strings.ToLower(filename)

	switch {
	case strings.Contains(name, "magerit"),
		strings.Contains(name, "risk_measurement"),
		strings.Contains(name, "risk_method"):
		return domain.DocTypeRiskMethodology
	case strings.Contains(name, "principle"):
		return domain.DocTypeSecurityPrinciples
	case strings.Contains(name, "risk") && hasToken(name, "it"):
		return domain.DocTypeITRiskManagement
	case strings.Contains(name, "framework"):
		return domain.DocTypeRegulatoryFramework
	case strings.Contains(name, "compliance"):
		return domain.DocTypeCompliance
	default:
		return domain.DocTypeGeneral
	}
}

// hasToken reports whether name contains tok as a whole token delimited by
// separators, so short tokens like "it" do not match inside longer words.
func hasToken(name, tok string) bool {
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}) {
		if part == tok {
			return true
		}
	}
	return false
}

// ClassifyChunk infers the semantic type of a chunk from keyword presence,
// checked in priority order.
func ClassifyChunk(content string) domain.ChunkType {
	text := strings.ToLower(content)

	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("vulnerability", "threat", "exploit"):
		return domain.ChunkTypeVulnerability
	case containsAny("control", "safeguard", "mitigation"):
		return domain.ChunkTypeControl
	case containsAny("impact", "damage", "consequence"):
		return domain.ChunkTypeImpact
	case containsAny("methodology", "framework", "process"):
		return domain.ChunkTypeMethodology
	case containsAny("iso", "nist", "magerit", "octave"):
		return domain.ChunkTypeFramework
	default:
		return domain.ChunkTypeConceptual
	}
}
