package extract

import (
	"bytes"
	"context"
	"fmt"

	dslipak "github.com/dslipak/pdf"
	"github.com/gen2brain/go-fitz"
	ledongthuc "github.com/ledongthuc/pdf"
)

// pdfTextV1 extracts the PDF text layer page by page using ledongthuc/pdf.
// It handles well-formed PDFs with embedded font maps; encrypted or
// malformed cross-reference tables make it fail where the other decoders
// may still succeed.
type pdfTextV1 struct{}

func (*pdfTextV1) Name() string { return "text-layer-v1" }

func (*pdfTextV1) Extract(_ context.Context, path string) (string, error) {
	f, r, err := ledongthuc.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract: pdf page %d: %w", i, err)
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// pdfTextV2 extracts the PDF text layer using the dslipak decoder — an
// independent fork with a different content-stream tokenizer, so it
// recovers text from some files that defeat v1.
type pdfTextV2 struct{}

func (*pdfTextV2) Name() string { return "text-layer-v2" }

func (*pdfTextV2) Extract(_ context.Context, path string) (string, error) {
	r, err := dslipak.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract: read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extract: read pdf text: %w", err)
	}
	return buf.String(), nil
}

// pdfTextMuPDF extracts the text layer through MuPDF, which tolerates
// damaged files and non-standard encodings better than the pure-Go decoders.
type pdfTextMuPDF struct{}

func (*pdfTextMuPDF) Name() string { return "text-layer-mupdf" }

func (*pdfTextMuPDF) Extract(_ context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer doc.Close()

	var buf bytes.Buffer
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extract: pdf page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
