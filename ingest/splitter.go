package ingest

import "strings"

// Splitter cuts document text into overlapping character-bounded chunks,
// preferring to break at paragraph, line and sentence boundaries before
// falling back to whitespace.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter returns a splitter with the given bounds. Non-positive
// values fall back to defaults tuned for dense report PDFs.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 900
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 6
	}
	return &Splitter{ChunkSize: size, ChunkOverlap: overlap}
}

var separators = []string{"\n\n", "\n", ". ", " "}

// Split returns the chunks of text in order. Whitespace-only input
// produces no chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + s.ChunkSize
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := s.findCut(text, start, end)
		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - s.ChunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// findCut picks the latest preferred separator inside the window, taking
// a hard character cut only when no separator appears past the midpoint.
func (s *Splitter) findCut(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > len(window)/2 {
			return start + i + len(sep)
		}
	}
	return end
}
