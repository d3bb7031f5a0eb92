package ingest

import "strings"

// securityVocabulary is the fixed domain vocabulary checked against each
// chunk. Order matters: extracted keywords preserve this order.
var securityVocabulary = []string{
	"magerit", "octave", "vulnerability", "threat", "risk", "impact",
	"control", "safeguard", "asset", "confidentiality", "integrity",
	"availability", "iso", "nist", "ens", "cybersecurity", "framework",
	"methodology", "analysis", "management", "assessment", "mitigation",
	"compliance", "audit", "incident", "contingency",
}

const maxKeywordsPerChunk = 10

// ExtractKeywords returns the vocabulary terms present in content as
// case-insensitive substrings, in vocabulary order, capped at ten.
func ExtractKeywords(content string) []string {
	text := strings.ToLower(content)

	var found []string
	for _, kw := range securityVocabulary {
		if strings.Contains(text, kw) {
			found = append(found, kw)
			if len(found) == maxKeywordsPerChunk {
				break
			}
		}
	}
	return found
}
