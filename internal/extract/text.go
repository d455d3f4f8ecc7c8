package extract

import (
	"context"
	"os"
	"path/filepath"
)

type TextExtractor struct{}

func (t *TextExtractor) Extract(ctx context.Context, source string) (*Document, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, &ExtractionError{Source: source, Reason: "could not read file", Err: err}
	}

	text := string(data)
	if len(text) == 0 {
		return nil, &ExtractionError{Source: source, Reason: "file is empty"}
	}

	return &Document{
		Text:      text,
		Source:    filepath.Base(source),
		Pages:     1,
		WordCount: wordCount(text),
	}, nil
}
