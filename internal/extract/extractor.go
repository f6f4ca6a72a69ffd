// Package extract converts raw documents (PDF, DOCX, TXT) into plain text.
// PDF extraction runs an ordered list of independent strategies — two
// text-layer decoders with different failure modes, a MuPDF-backed decoder,
// and finally LLM-vision OCR over rasterised pages — short-circuiting on the
// first strategy that produces non-blank text. Extraction is best-effort: a
// single strategy failure is logged and the next strategy is attempted;
// only exhaustion of every strategy yields empty output, and empty output is
// "no extractable content", never an error.
package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docuchat/docuchat/internal/logging"
)

// Strategy is a single text-extraction attempt over a document file.
// Implementations return an error for their own failures; the Extractor
// treats any error or blank result as "try the next strategy".
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Extract returns the plain text recovered from the file at path.
	Extract(ctx context.Context, path string) (string, error)
}

// Extractor routes a file to the extraction pipeline for its declared
// extension. The declared extension, not file content sniffing, selects the
// pipeline — the caller owns the filename and its meaning.
type Extractor struct {
	// pdfStrategies is the ordered PDF strategy list, coarsest first.
	pdfStrategies []Strategy
}

// New constructs an Extractor with the default PDF strategy order:
// text-layer v1, text-layer v2, MuPDF text, then OCR when ocr is non-nil.
// Pass nil to disable the OCR fallback (no chat client available).
func New(ocr *OCRStrategy) *Extractor {
	strategies := []Strategy{
		&pdfTextV1{},
		&pdfTextV2{},
		&pdfTextMuPDF{},
	}
	if ocr != nil {
		strategies = append(strategies, ocr)
	}
	return &Extractor{pdfStrategies: strategies}
}

// newWithStrategies is the test seam for injecting stub strategies.
func newWithStrategies(strategies ...Strategy) *Extractor {
	return &Extractor{pdfStrategies: strategies}
}

// Extract returns the plain text content of the file at path. ext is the
// declared extension including the leading dot (e.g. ".pdf"); when empty it
// is derived from path. Unsupported extensions return empty text and a nil
// error — the caller decides whether that is a user-facing failure.
func (e *Extractor) Extract(ctx context.Context, path, ext string) (string, error) {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	ext = strings.ToLower(ext)

	switch ext {
	case ".pdf":
		return e.extractPDF(ctx, path), nil
	case ".docx":
		return extractDOCX(path)
	case ".txt":
		return extractPlain(path)
	default:
		logging.FromContext(ctx).Debug("extract: unsupported extension",
			slog.String("ext", ext),
		)
		return "", nil
	}
}

// extractPDF runs the strategy list in order, returning the first non-blank
// result. Strategy errors are logged and swallowed; exhaustion returns "".
func (e *Extractor) extractPDF(ctx context.Context, path string) string {
	log := logging.FromContext(ctx)

	for _, s := range e.pdfStrategies {
		text, err := s.Extract(ctx, path)
		if err != nil {
			log.Warn("extract: pdf strategy failed, trying next",
				slog.String("strategy", s.Name()),
				slog.Any("error", err),
			)
			continue
		}
		if strings.TrimSpace(text) != "" {
			log.Debug("extract: pdf strategy succeeded",
				slog.String("strategy", s.Name()),
				slog.Int("chars", len(text)),
			)
			return text
		}
		log.Debug("extract: pdf strategy produced blank text, trying next",
			slog.String("strategy", s.Name()),
		)
	}

	log.Warn("extract: all pdf strategies exhausted, no extractable content",
		slog.String("path", filepath.Base(path)),
	)
	return ""
}

// extractPlain reads a .txt file as-is, replacing invalid UTF-8 sequences
// with the replacement character rather than failing.
func extractPlain(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(content), "�"), nil
}
