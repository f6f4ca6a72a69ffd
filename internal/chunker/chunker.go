// Package chunker splits document text into overlapping fixed-size segments
// suitable for embedding. Splitting is boundary-aware: paragraph breaks are
// preferred over line breaks, line breaks over word breaks, and a hard
// character cut is used only as a last resort. The overlap between
// consecutive chunks preserves context across chunk boundaries so retrieval
// never loses a sentence that straddles a cut.
package chunker

import (
	"strings"
)

const (
	// DefaultChunkSize is the target number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultChunkOverlap = 200
)

// separators is the boundary preference order: paragraph, line, word, and
// finally a hard cut when no boundary exists within the chunk size.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter produces overlapping chunks from plain text. The zero value is
// not usable; construct with New. Splitting is deterministic: identical
// input and parameters always yield the identical chunk sequence.
type Splitter struct {
	// chunkSize is the target maximum chunk length in characters.
	chunkSize int

	// overlap is the number of trailing characters carried into the next chunk.
	overlap int
}

// New constructs a Splitter with the given size and overlap.
// Non-positive size falls back to DefaultChunkSize; an overlap that is
// negative or not smaller than the size falls back to DefaultChunkOverlap.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split divides text into overlapping chunks. Empty or whitespace-only input
// produces zero chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, separators)
}

// split recursively divides text on the first separator present, merging the
// resulting pieces back into chunks of at most chunkSize characters. Pieces
// that are themselves oversized are re-split with the remaining, finer
// separators.
func (s *Splitter) split(text string, seps []string) []string {
	sep, rest := pickSeparator(text, seps)

	var pieces []string
	if sep == "" {
		pieces = s.hardCut(text)
	} else {
		pieces = splitKeepSep(text, sep)
	}

	var chunks []string
	var pending []string
	for _, piece := range pieces {
		if len(piece) <= s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		// Oversized piece: flush what we have, then recurse with finer separators.
		chunks = append(chunks, s.merge(pending)...)
		pending = nil
		chunks = append(chunks, s.split(piece, rest)...)
	}
	chunks = append(chunks, s.merge(pending)...)
	return chunks
}

// merge greedily packs pieces into chunks of at most chunkSize characters,
// carrying a trailing window of up to overlap characters into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	if len(pieces) == 0 {
		return nil
	}

	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if total+len(piece) > s.chunkSize && total > 0 {
			flush()
			// Retain trailing pieces within the overlap budget.
			for total > s.overlap || (total+len(piece) > s.chunkSize && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	flush()
	return chunks
}

// pickSeparator returns the first separator found in text and the separators
// finer than it. The empty-string separator (hard cut) always matches.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// splitKeepSep splits text on sep, keeping the separator attached to the end
// of each preceding piece so no characters are lost when pieces are rejoined.
func splitKeepSep(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// hardCut slices text into chunkSize-length segments with no boundary
// awareness, advancing by chunkSize-overlap so consecutive segments share
// the configured overlap. Used only when no separator exists within an
// oversized piece. New guarantees overlap < chunkSize, so the stride is
// always positive.
func (s *Splitter) hardCut(text string) []string {
	stride := s.chunkSize - s.overlap
	var out []string
	for len(text) > s.chunkSize {
		out = append(out, text[:s.chunkSize])
		text = text[stride:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
