package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gen2brain/go-fitz"

	"github.com/docuchat/docuchat/internal/logging"
)

// ocrMaxPages bounds OCR cost and latency: pages beyond this are skipped.
const ocrMaxPages = 5

// ocrPageTimeout bounds each per-page vision call.
const ocrPageTimeout = 60 * time.Second

// ocrPrompt instructs the model to transcribe without commentary.
const ocrPrompt = "Transcribe the text in this image exactly. Do not add any commentary. Output only the text content."

// OCRStrategy is the last-resort PDF strategy: it rasterises the first
// ocrMaxPages pages to PNG and asks a vision-capable chat model to
// transcribe each page verbatim. Per-page transcriptions are concatenated;
// a page that fails to transcribe contributes nothing rather than aborting
// the document.
type OCRStrategy struct {
	// chat is the vision-capable chat model used for transcription.
	chat model.ToolCallingChatModel
}

// NewOCRStrategy constructs an OCRStrategy over the given chat model.
// Returns nil when chat is nil so callers can pass the result straight to
// New without a nil check of their own.
func NewOCRStrategy(chat model.ToolCallingChatModel) *OCRStrategy {
	if chat == nil {
		return nil
	}
	return &OCRStrategy{chat: chat}
}

func (*OCRStrategy) Name() string { return "raster-ocr" }

// ocrPageBudget clamps a document's page count to ocrMaxPages. The second
// return reports whether pages were dropped.
func ocrPageBudget(total int) (int, bool) {
	if total > ocrMaxPages {
		return ocrMaxPages, true
	}
	return total, false
}

// Extract renders and transcribes up to ocrMaxPages pages.
func (o *OCRStrategy) Extract(ctx context.Context, path string) (string, error) {
	log := logging.FromContext(ctx)

	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("extract: ocr open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	pages, capped := ocrPageBudget(total)
	if capped {
		log.Info("extract: ocr page limit reached, skipping remainder",
			slog.Int("pages", total),
			slog.Int("limit", ocrMaxPages),
		)
	}

	var buf strings.Builder
	for i := 0; i < pages; i++ {
		png, err := doc.ImagePNG(i, 150)
		if err != nil {
			log.Warn("extract: ocr page render failed",
				slog.Int("page", i+1),
				slog.Any("error", err),
			)
			continue
		}

		text, err := o.transcribe(ctx, png)
		if err != nil {
			log.Warn("extract: ocr page transcription failed",
				slog.Int("page", i+1),
				slog.Any("error", err),
			)
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// transcribe sends one rendered page to the chat model as a multi-part
// text+image message and returns the transcription.
func (o *OCRStrategy) transcribe(ctx context.Context, png []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: ocrPrompt},
			{
				Type:     schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{URL: dataURL},
			},
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, ocrPageTimeout)
	defer cancel()

	resp, err := o.chat.Generate(callCtx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("extract: ocr generate: %w", err)
	}
	return resp.Content, nil
}
