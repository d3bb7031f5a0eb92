package analyzer

import (
	"fmt"
	"strings"
)

func systemPrompt(detailLevel string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are a cybersecurity incident analyst working with the MAGERIT, OCTAVE,
ISO 27001 and NIST methodologies. Analyze the reported incident at a %s
level of detail and respond with a single JSON object using exactly these
keys:

{
  "risk_level": "low|medium|high|critical",
  "vulnerabilities": ["..."],
  "impacts": ["..."],
  "controls": ["..."],
  "recommendations": ["..."]
}

Base your analysis on the supplied knowledge context when present. Respond
with JSON only, no surrounding prose.`, detailLevel))
}

func userPrompt(description, contextBlock string) string {
	if contextBlock == "" {
		return fmt.Sprintf("Incident report:\n\n%s", description)
	}
	return fmt.Sprintf("%s\n\nIncident report:\n\n%s", contextBlock, description)
}
