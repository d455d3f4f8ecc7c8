package extract

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
)

type URLExtractor struct{}

func (u *URLExtractor) Extract(ctx context.Context, source string) (*Document, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, &ExtractionError{Source: source, Reason: "invalid URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &ExtractionError{Source: source, Reason: "could not build request", Err: err}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &ExtractionError{Source: source, Reason: "could not fetch URL", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{Source: source, Reason: "HTTP " + resp.Status}
	}

	limited := io.LimitReader(resp.Body, maxSourceSize)
	article, err := readability.FromReader(limited, parsed)
	if err != nil {
		return nil, &ExtractionError{Source: source, Reason: "could not extract article", Err: err}
	}

	text := article.TextContent
	if len(text) == 0 {
		return nil, &ExtractionError{Source: source, Reason: "no readable content extracted"}
	}

	return &Document{
		Text:      text,
		Source:    source,
		Pages:     1,
		WordCount: wordCount(text),
	}, nil
}
