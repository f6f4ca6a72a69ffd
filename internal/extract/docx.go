package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// docxDocumentXML is the main document body inside a .docx package.
const docxDocumentXML = "word/document.xml"

// wtText matches the inner text of <w:t> runs, with or without attributes
// (e.g. <w:t xml:space="preserve">). Attribute-bearing paragraph and run
// tags are common in real-world documents, so matching on <w:t ...> rather
// than bare tags is required.
var wtText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX extracts paragraph text from a .docx file in document order.
// DOCX is a ZIP containing OOXML; each <w:p> paragraph's text runs are
// concatenated, and paragraphs are joined with newlines.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("extract: docx is not a zip: %w", err)
	}
	defer zr.Close()

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXML {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract: docx open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract: docx read %s: %w", f.Name, err)
		}
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("extract: docx missing %s", docxDocumentXML)
	}

	// Split on paragraph close tags so each paragraph's runs stay together.
	paragraphs := strings.Split(string(docXML), "</w:p>")
	var out []string
	for _, p := range paragraphs {
		runs := wtText.FindAllStringSubmatch(p, -1)
		if len(runs) == 0 {
			continue
		}
		var b strings.Builder
		for _, r := range runs {
			b.WriteString(xmlUnescape(r[1]))
		}
		out = append(out, b.String())
	}
	return strings.Join(out, "\n"), nil
}

// xmlUnescape decodes the five predefined XML entities that appear in
// OOXML text runs.
func xmlUnescape(s string) string {
	r := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return r.Replace(s)
}
