package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantooth/blogsmith/internal/catalog"
	"github.com/mantooth/blogsmith/internal/config"
	"github.com/mantooth/blogsmith/internal/progress"
	"github.com/mantooth/blogsmith/internal/render"
)

const sampleText = `Windsor Nights

We went to the cocktail bar downtown and stayed far later than planned. The old fashioned alone was worth the trip.`

func newTestPipeline(t *testing.T) (*Pipeline, config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default(root)
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))

	cat, err := catalog.Load(cfg.CatalogPath, cfg.DisambiguateSlugs)
	require.NoError(t, err)
	r, err := render.New(cfg.OutputDir, cfg.SiteDir, cfg.SiteName, cfg.PostURLPrefix)
	require.NoError(t, err)

	return &Pipeline{
		Config:   cfg,
		Catalog:  cat,
		Renderer: r,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, cfg
}

func writeSource(t *testing.T, cfg config.Config, name, text string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestRunEndToEnd(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	var stages []progress.Stage
	entry, err := p.Run(context.Background(), Options{
		Source: source,
		OnProgress: func(ev progress.Event) {
			stages = append(stages, ev.Stage)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Windsor Nights", entry.Title)
	assert.Equal(t, "windsor-nights-blog", entry.Slug)
	assert.Equal(t, catalog.StatusCompleted, entry.Status)
	assert.Equal(t, 1, entry.ParagraphCount)
	assert.Contains(t, entry.Tags, "cocktails")
	assert.Contains(t, entry.Tags, "lifestyle")
	assert.Equal(t, "windsor_nights_blog.png", entry.Image)
	assert.NotEmpty(t, entry.Excerpt)

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "windsor-nights-blog.html"))
	assert.FileExists(t, filepath.Join(cfg.SiteDir, "blogs.html"))
	assert.FileExists(t, filepath.Join(cfg.SiteDir, render.IndexFileName))

	assert.Equal(t, progress.StageExtract, stages[0])
	assert.Equal(t, progress.StageComplete, stages[len(stages)-1])
}

func TestRunPreservesEditsOnReprocess(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	entry, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	require.NoError(t, p.Catalog.UpdateField(entry.ID, catalog.FieldTitle, "A Night at Windsor"))

	again, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, "A Night at Windsor", again.Title)
	assert.Equal(t, catalog.StatusCompleted, again.Status)
	assert.Equal(t, 1, p.Catalog.Len(), "reprocessing must not duplicate entries")
}

func TestRunRecoversInterruptedEntry(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	entry, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)

	// A kill between the catalog save and the render save leaves the entry
	// persisted as processing. Reprocessing must pick it up, not wedge.
	require.NoError(t, p.Catalog.Apply(entry.ID, func(e *catalog.Entry) error {
		return e.Transition(catalog.StatusProcessing)
	}))

	again, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, catalog.StatusCompleted, again.Status)
}

func TestRunKeepsPublishedStatus(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	entry, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	require.NoError(t, p.Publish(entry.ID))

	again, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusPublished, again.Status)
}

func TestRunExtractionFailure(t *testing.T) {
	p, cfg := newTestPipeline(t)

	_, err := p.Run(context.Background(), Options{Source: filepath.Join(cfg.InputDir, "absent.txt")})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "extract", perr.Stage)
	assert.Equal(t, 0, p.Catalog.Len(), "a failed new source never enters the catalog")
}

func TestRunFailureMarksExistingEntry(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	entry, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)

	require.NoError(t, os.Remove(source))
	_, err = p.Run(context.Background(), Options{Source: source})
	require.Error(t, err)

	got, ok := p.Catalog.Get(entry.ID)
	require.True(t, ok)
	assert.Equal(t, catalog.StatusError, got.Status)
	assert.NotEmpty(t, got.LastError)
}

func TestUnpublishRemovesEverything(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	entry, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)

	require.NoError(t, p.Unpublish(entry.ID))
	assert.Equal(t, 0, p.Catalog.Len())
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, entry.FileName))

	report, err := p.ListOrphans()
	require.NoError(t, err)
	assert.True(t, report.Empty())
}

func TestRemoveStrays(t *testing.T) {
	p, cfg := newTestPipeline(t)
	source := writeSource(t, cfg, "windsor_nights.txt", sampleText)

	entry, err := p.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)

	stray := filepath.Join(cfg.OutputDir, "mystery-blog.html")
	require.NoError(t, os.WriteFile(stray, []byte("<html></html>"), 0o644))

	report, err := p.ListOrphans()
	require.NoError(t, err)
	require.Equal(t, []string{"mystery-blog.html"}, report.StrayFiles)

	removed, err := p.RemoveStrays(report.StrayFiles)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stray)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, entry.FileName), "known files stay put")

	report, err = p.ListOrphans()
	require.NoError(t, err)
	assert.True(t, report.Empty())
}

func TestScan(t *testing.T) {
	p, cfg := newTestPipeline(t)
	writeSource(t, cfg, "beta.pdf", "x")
	writeSource(t, cfg, "alpha.PDF", "x")
	writeSource(t, cfg, "notes.txt", "x")

	records, err := p.Scan()
	require.NoError(t, err)
	require.Len(t, records, 2, "only PDFs are discovered")
	assert.Equal(t, "alpha.PDF", records[0].Name)
	assert.Equal(t, "beta.pdf", records[1].Name)
	assert.Equal(t, catalog.StatusPending, records[0].Status)
}

func TestScanMissingInputDir(t *testing.T) {
	p, cfg := newTestPipeline(t)
	require.NoError(t, os.RemoveAll(cfg.InputDir))

	records, err := p.Scan()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessAllCollectsFailures(t *testing.T) {
	p, cfg := newTestPipeline(t)
	writeSource(t, cfg, "broken.pdf", "not a pdf")

	processed, failures, err := p.ProcessAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	require.Len(t, failures, 1)
	assert.Contains(t, failures, "broken.pdf")
}
