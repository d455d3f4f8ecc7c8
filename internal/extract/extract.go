package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type SourceType string

const (
	SourceURL  SourceType = "url"
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"

	// maxSourceSize is the maximum allowed size for a source file (25 MB).
	maxSourceSize = 25 * 1024 * 1024
)

func (s SourceType) String() string {
	return string(s)
}

// Document is the raw output of an extractor, before normalization.
type Document struct {
	Text      string
	Source    string // base name of the originating file, or the full URL
	Pages     int
	WordCount int
}

type Extractor interface {
	Extract(ctx context.Context, source string) (*Document, error)
}

// ExtractionError reports a source that could not be turned into text.
// Extraction is deterministic, so the failure is reported once and never
// retried.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func DetectSource(input string) SourceType {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return SourceURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return SourcePDF
	}
	return SourceText
}

func NewExtractor(input string) Extractor {
	switch DetectSource(input) {
	case SourceURL:
		return &URLExtractor{}
	case SourcePDF:
		return &PDFExtractor{}
	default:
		return &TextExtractor{}
	}
}

func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inWord = false
		} else if !inWord {
			inWord = true
			count++
		}
	}
	return count
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ExtractionError{Source: path, Reason: "cannot access source", Err: err}
	}
	if info.IsDir() {
		return &ExtractionError{Source: path, Reason: "source is a directory, not a file"}
	}
	if info.Size() > maxSourceSize {
		return &ExtractionError{
			Source: path,
			Reason: fmt.Sprintf("source too large (%d MB, max %d MB)", info.Size()/(1024*1024), maxSourceSize/(1024*1024)),
		}
	}
	return nil
}
