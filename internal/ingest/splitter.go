package ingest

import (
	"strings"
)

// DefaultSeparators lists the split boundaries in priority order: section
// headers first, then subsection headers, emphasized-text markers, blank
// lines, newlines, sentence ends, and finally single spaces. The empty
// string is the terminal hard-cut level for indivisible runs.
func DefaultSeparators() []string {
	return []string{
		"\n\n# ",
		"\n\n## ",
		"\n\n### ",
		"\n\n**",
		"\n\n",
		"\n",
		". ",
		" ",
		"",
	}
}

// SplitConfig controls chunk sizing.
type SplitConfig struct {
	ChunkSize int
	Overlap   int
}

// DefaultSplitConfig returns the sizing tuned for technical security text.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// Piece is one split span with its start offset in the parent text.
type Piece struct {
	Text  string
	Start int
}

// Splitter divides text along semantic boundaries, recursively narrowing
// the separator until every piece fits the chunk budget, then re-applies
// the configured overlap at each boundary.
type Splitter struct {
	cfg        SplitConfig
	separators []string
}

// NewSplitter builds a splitter with the default separator ladder.
func NewSplitter(cfg SplitConfig) *Splitter {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultSplitConfig()
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 2
	}
	return &Splitter{
		cfg:        cfg,
		separators: DefaultSeparators(),
	}
}

// Split divides text into overlapping pieces, each annotated with its start
// offset for traceability.
func (s *Splitter) Split(text string) []Piece {
	chunks := s.splitText(text, s.separators)

	pieces := make([]Piece, 0, len(chunks))
	searchFrom := 0
	for _, chunk := range chunks {
		start := searchFrom
		if idx := strings.Index(text[searchFrom:], chunk); idx >= 0 {
			start = searchFrom + idx
		}
		pieces = append(pieces, Piece{Text: chunk, Start: start})
		if start+1 > searchFrom {
			searchFrom = start + 1
		}
	}
	return pieces
}

func (s *Splitter) splitText(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	separator := separators[len(separators)-1]
	remaining := []string{}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		// Terminal level: hard-cut the run into budget-sized pieces with
		// overlap carried across cuts.
		return s.hardCut(text)
	}

	splits := splitKeepSeparator(text, separator)

	final := make([]string, 0, len(splits))
	good := make([]string, 0, len(splits))
	for _, piece := range splits {
		if len(piece) <= s.cfg.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = good[:0]
		}
		final = append(final, s.splitText(piece, remaining)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge greedily joins splits up to the chunk budget and then rewinds the
// window so adjacent chunks share the configured overlap.
func (s *Splitter) merge(splits []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, piece := range splits {
		length := len(piece)
		if total+length > s.cfg.ChunkSize && len(current) > 0 {
			if chunk := joinTrimmed(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.cfg.Overlap || (total+length > s.cfg.ChunkSize && total > 0) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += length
	}

	if chunk := joinTrimmed(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.cfg.ChunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	step := s.cfg.ChunkSize - s.cfg.Overlap
	if step <= 0 {
		step = s.cfg.ChunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitKeepSeparator splits on sep and re-attaches the separator as a
// prefix of each following piece, so no characters are lost.
func splitKeepSeparator(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinTrimmed(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, ""))
}
