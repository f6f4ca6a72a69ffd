package extract

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// stubStrategy records whether it ran and returns canned results.
type stubStrategy struct {
	name   string
	text   string
	err    error
	called bool
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(context.Context, string) (string, error) {
	s.called = true
	return s.text, s.err
}

func TestExtract_TxtReadAsIs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello\nworld"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := New(nil)
	text, err := e.Extract(context.Background(), path, ".txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello\nworld" {
		t.Errorf("expected raw content, got %q", text)
	}
}

func TestExtract_TxtInvalidUTF8Sanitised(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe}, 0o600); err != nil {
		t.Fatal(err)
	}

	e := New(nil)
	text, err := e.Extract(context.Background(), path, ".txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Error("expected sanitised content, got empty")
	}
}

func TestExtract_UnsupportedExtensionReturnsEmpty(t *testing.T) {
	t.Parallel()

	e := New(nil)
	text, err := e.Extract(context.Background(), "/nonexistent/file.exe", ".exe")
	if err != nil {
		t.Fatalf("unsupported extension must not error, got: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestExtractPDF_ShortCircuitsOnFirstNonBlank(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "first", text: "page text"}
	second := &stubStrategy{name: "second", text: "should not run"}
	e := newWithStrategies(first, second)

	got := e.extractPDF(context.Background(), "doc.pdf")
	if got != "page text" {
		t.Errorf("expected first strategy result, got %q", got)
	}
	if second.called {
		t.Error("second strategy ran despite first producing text")
	}
}

func TestExtractPDF_FailureAdvancesToNextStrategy(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "first", err: errors.New("decode failure")}
	second := &stubStrategy{name: "second", text: "   \n"}
	third := &stubStrategy{name: "third", text: "recovered"}
	e := newWithStrategies(first, second, third)

	got := e.extractPDF(context.Background(), "doc.pdf")
	if got != "recovered" {
		t.Errorf("expected third strategy result, got %q", got)
	}
	if !first.called || !second.called || !third.called {
		t.Error("expected all strategies up to the first success to run")
	}
}

func TestExtractPDF_ExhaustionYieldsEmptyNotError(t *testing.T) {
	t.Parallel()

	e := newWithStrategies(
		&stubStrategy{name: "a", err: errors.New("boom")},
		&stubStrategy{name: "b", text: "  "},
	)

	if got := e.extractPDF(context.Background(), "doc.pdf"); got != "" {
		t.Errorf("expected empty text on exhaustion, got %q", got)
	}
}

func TestNew_NilOCRDisablesFallback(t *testing.T) {
	t.Parallel()

	e := New(NewOCRStrategy(nil))
	for _, s := range e.pdfStrategies {
		if s.Name() == "raster-ocr" {
			t.Error("ocr strategy registered despite nil chat model")
		}
	}
	if len(e.pdfStrategies) != 3 {
		t.Errorf("expected 3 text-layer strategies, got %d", len(e.pdfStrategies))
	}
}

func TestExtractDOCX_ParagraphOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	writeTestDocx(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p w:rsidR="00A"><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	e := New(nil)
	text, err := e.Extract(context.Background(), path, ".docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph.\nSecond paragraph."
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

// writeTestDocx assembles a minimal .docx zip with the given document.xml.
func writeTestDocx(t *testing.T, path, documentXML string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// NewOCRStrategy must return a typed nil that New treats as absent; this
// guards the ingest path where no chat client exists yet.
func TestNewOCRStrategy_NilChat(t *testing.T) {
	t.Parallel()

	if s := NewOCRStrategy(nil); s != nil {
		t.Error("expected nil strategy for nil chat model")
	}
}

func TestOCRPageBudget_ClampsLongDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total      int
		wantPages  int
		wantCapped bool
	}{
		{0, 0, false},
		{1, 1, false},
		{ocrMaxPages, ocrMaxPages, false},
		{ocrMaxPages + 1, ocrMaxPages, true},
		{100, ocrMaxPages, true},
	}
	for _, tc := range tests {
		pages, capped := ocrPageBudget(tc.total)
		if pages != tc.wantPages || capped != tc.wantCapped {
			t.Errorf("ocrPageBudget(%d) = (%d, %t), want (%d, %t)",
				tc.total, pages, capped, tc.wantPages, tc.wantCapped)
		}
	}
}
