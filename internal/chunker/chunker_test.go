package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	s := New(DefaultChunkSize, DefaultChunkOverlap)
	if got := s.Split(""); len(got) != 0 {
		t.Errorf("expected 0 chunks for empty input, got %d", len(got))
	}
	if got := s.Split("   \n\n  "); len(got) != 0 {
		t.Errorf("expected 0 chunks for whitespace input, got %d", len(got))
	}
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	t.Parallel()

	s := New(DefaultChunkSize, DefaultChunkOverlap)
	text := "The sky is blue. Grass is green."
	chunks := s.Split(text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for input shorter than chunk size, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("expected chunk to equal input, got %q", chunks[0])
	}
}

func TestSplit_ChunkSizeRespected(t *testing.T) {
	t.Parallel()

	s := New(100, 20)

	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "word%03d ", i)
	}
	chunks := s.Split(b.String())

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, len(c))
		}
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	t.Parallel()

	s := New(80, 16)
	text := strings.Repeat("alpha beta gamma delta epsilon.\n", 40)

	first := s.Split(text)
	second := s.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

// TestSplit_OverlapBetweenChunks verifies that consecutive chunks share
// content: the next chunk must begin inside the span covered by the previous
// one. Distinct numbered words make positions in the source unambiguous.
func TestSplit_OverlapBetweenChunks(t *testing.T) {
	t.Parallel()

	s := New(100, 30)

	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "tok%04d ", i)
	}
	text := strings.TrimSpace(b.String())
	chunks := s.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	prevEnd := 0
	searchFrom := 0
	for i, c := range chunks {
		start := strings.Index(text[searchFrom:], c)
		if start < 0 {
			t.Fatalf("chunk %d not found verbatim in source", i)
		}
		start += searchFrom
		if i > 0 && start >= prevEnd {
			t.Errorf("chunk %d starts at %d, after previous chunk end %d — no overlap", i, start, prevEnd)
		}
		prevEnd = start + len(c)
		searchFrom = start + 1
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	t.Parallel()

	s := New(60, 10)
	text := "First paragraph stays whole.\n\nSecond paragraph stays whole.\n\nThird paragraph stays whole."
	chunks := s.Split(text)

	for i, c := range chunks {
		if strings.Contains(c, "whole.\n\nSecond") && strings.Contains(c, "Third") {
			t.Errorf("chunk %d spans three paragraphs despite size limit: %q", i, c)
		}
	}
}

func TestSplit_HardCutWhenNoBoundary(t *testing.T) {
	t.Parallel()

	s := New(50, 10)
	text := strings.Repeat("x", 175)
	chunks := s.Split(text)

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for 175 unbroken chars at size 50, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d exceeds size limit: %d", i, len(c))
		}
	}
}

// TestSplit_HardCutCarriesOverlap verifies that the overlap survives even on
// the hard-cut path: consecutive chunks of an unbroken run must share the
// configured number of trailing characters.
func TestSplit_HardCutCarriesOverlap(t *testing.T) {
	t.Parallel()

	const (
		size    = 100
		overlap = 30
	)
	s := New(size, overlap)

	text := strings.Repeat("0123456789", 25)
	chunks := s.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 250 unbroken chars at size %d, got %d", size, len(chunks))
	}

	offset := 0
	for i, c := range chunks {
		if len(c) > size {
			t.Errorf("chunk %d exceeds size limit: %d", i, len(c))
		}
		if got := text[offset : offset+len(c)]; got != c {
			t.Fatalf("chunk %d does not match source at offset %d", i, offset)
		}
		if i > 0 {
			prev := chunks[i-1]
			if prev[len(prev)-overlap:] != c[:overlap] {
				t.Errorf("chunk %d does not share %d chars with its predecessor", i, overlap)
			}
		}
		offset += len(c) - overlap
	}
	if last := chunks[len(chunks)-1]; !strings.HasSuffix(text, last) {
		t.Errorf("final chunk does not end at the end of the source")
	}
}

func TestNew_ParameterFallbacks(t *testing.T) {
	t.Parallel()

	s := New(0, -1)
	if s.chunkSize != DefaultChunkSize {
		t.Errorf("expected default chunk size, got %d", s.chunkSize)
	}
	if s.overlap != DefaultChunkOverlap {
		t.Errorf("expected default overlap, got %d", s.overlap)
	}

	// Overlap >= size must be reduced, never left to loop forever.
	s = New(100, 100)
	if s.overlap >= s.chunkSize {
		t.Errorf("overlap %d not reduced below chunk size %d", s.overlap, s.chunkSize)
	}
}
