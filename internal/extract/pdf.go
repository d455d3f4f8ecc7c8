package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFExtractor struct{}

// Extract reads every page of the PDF in order and joins the page texts with
// a blank-line separator. Pages that fail to extract are skipped; a PDF whose
// pages all come back empty is reported as an ExtractionError so a scanned or
// image-only document never silently produces an empty post.
func (p *PDFExtractor) Extract(ctx context.Context, source string) (*Document, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(source)
	if err != nil {
		return nil, &ExtractionError{Source: source, Reason: "not a readable PDF", Err: err}
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, &ExtractionError{Source: source, Reason: "PDF has no pages"}
	}

	var pageTexts []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip pages that fail to extract
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pageTexts = append(pageTexts, strings.TrimSpace(text))
	}

	text := strings.Join(pageTexts, "\n\n")
	if text == "" {
		return nil, &ExtractionError{
			Source: source,
			Reason: "no text content found; the PDF may be scanned or image-based",
		}
	}

	return &Document{
		Text:      text,
		Source:    filepath.Base(source),
		Pages:     numPages,
		WordCount: wordCount(text),
	}, nil
}
