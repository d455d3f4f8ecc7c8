// Package pipeline orchestrates one source's trip from PDF to published
// post: extract → normalize → derive → reconcile → render. Each stage wraps
// its failure in a PipelineError so the shell can report exactly where a
// source went wrong, and one bad PDF never blocks the rest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mantooth/blogsmith/internal/catalog"
	"github.com/mantooth/blogsmith/internal/config"
	"github.com/mantooth/blogsmith/internal/content"
	"github.com/mantooth/blogsmith/internal/extract"
	"github.com/mantooth/blogsmith/internal/observability"
	"github.com/mantooth/blogsmith/internal/progress"
	"github.com/mantooth/blogsmith/internal/render"
)

type Options struct {
	// Source is a PDF path, text file path, or URL.
	Source string
	// OnProgress receives stage events; nil means silent.
	OnProgress progress.Callback
}

type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Pipeline owns the processing dependencies. The catalog serializes its own
// mutations, so a Pipeline is safe to call from UI callbacks one entry at a
// time.
type Pipeline struct {
	Config   config.Config
	Catalog  *catalog.Catalog
	Renderer *render.Renderer
	Log      *slog.Logger
}

// Run processes a single source end to end and returns the reconciled
// catalog entry. Reprocessing a known source updates its entry in place;
// user-edited fields survive. The entry ends in status completed (published
// again, when it was published before this update) or error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*catalog.Entry, error) {
	start := time.Now()
	emit := opts.OnProgress
	if emit == nil {
		emit = progress.NopCallback
	}

	// Stage 1: extract
	ctx, span := observability.StartSpan(ctx, "pipeline.extract")
	emit(progress.NewEvent(progress.StageExtract, "Extracting text from "+filepath.Base(opts.Source), 0.05, start))
	extractor := extract.NewExtractor(opts.Source)
	doc, err := extractor.Extract(ctx, opts.Source)
	span.End()
	if err != nil {
		p.failEntry(opts.Source, err)
		return nil, p.fail(emit, start, "extract", "could not extract source text", err)
	}
	p.Log.DebugContext(ctx, "extracted source",
		slog.String("source", doc.Source),
		slog.Int("pages", doc.Pages),
		slog.Int("words", doc.WordCount))

	// Stage 2: normalize
	_, span = observability.StartSpan(ctx, "pipeline.normalize")
	emit(progress.NewEvent(progress.StageNormalize, "Detecting paragraphs", 0.3, start))
	paragraphs := content.Segment(doc.Text)
	span.End()
	if len(paragraphs) == 0 {
		err := &extract.ExtractionError{Source: opts.Source, Reason: "no paragraphs survived normalization"}
		p.failEntry(opts.Source, err)
		return nil, p.fail(emit, start, "normalize", "nothing to publish", err)
	}

	// Stage 3: derive metadata
	_, span = observability.StartSpan(ctx, "pipeline.derive")
	emit(progress.NewEvent(progress.StageDerive, "Deriving title, slug, and tags", 0.5, start))
	derived := p.derive(doc, paragraphs)
	span.End()

	// Stage 4: reconcile against the catalog
	_, span = observability.StartSpan(ctx, "pipeline.reconcile")
	emit(progress.NewEvent(progress.StageReconcile, "Reconciling catalog", 0.7, start))
	entry, updated, wasPublished, err := p.reconcile(derived)
	span.End()
	if err != nil {
		return nil, p.fail(emit, start, "reconcile", "could not update catalog", err)
	}
	verb := "Created"
	if updated {
		verb = "Updated"
	}
	p.Log.InfoContext(ctx, "reconciled entry",
		slog.String("slug", entry.Slug),
		slog.Bool("updated", updated))

	// Stage 5: render
	_, span = observability.StartSpan(ctx, "pipeline.render")
	emit(progress.Event{
		Stage: progress.StageRender, Message: "Rendering " + entry.FileName,
		Percent: 0.9, Elapsed: time.Since(start), Slug: entry.Slug,
	})
	outPath, err := p.renderEntry(entry, wasPublished)
	span.End()
	if err != nil {
		return nil, p.fail(emit, start, "render", "could not write post", err)
	}

	final, ok := p.Catalog.Get(entry.ID)
	if !ok {
		final = entry
	}
	emit(progress.Event{
		Stage:      progress.StageComplete,
		Message:    fmt.Sprintf("%s %q", verb, final.Title),
		Percent:    1.0,
		Elapsed:    time.Since(start),
		OutputFile: outPath,
		Paragraphs: final.ParagraphCount,
		Slug:       final.Slug,
	})
	return final, nil
}

// derive builds a fresh entry from the normalized paragraphs. Nothing here
// touches the catalog; reconcile decides what survives.
func (p *Pipeline) derive(doc *extract.Document, paragraphs []string) *catalog.Entry {
	title := content.TitleFromFilename(doc.Source)
	_, body := content.PeelTitleBlock(paragraphs, title)
	if len(body) == 0 {
		body = paragraphs
	}

	entry := catalog.NewEntry(content.Slugify(title), title, sourceKey(doc.Source))
	entry.Content = content.WrapHTML(body)
	entry.ParagraphCount = len(body)
	entry.ReadTime = content.ReadTime(entry.Content)
	entry.Tags = content.SuggestTags(strings.Join(body, "\n\n"), p.Config.TagCap)
	entry.Image = content.ImageFilename(doc.Source)

	if p.Config.AutoExcerpts {
		entry.Excerpt = content.Excerpt(body, p.Config.MinParagraphLength, p.Config.MaxExcerptLength)
	} else {
		entry.Excerpt = "No excerpt generated."
	}
	return entry
}

// reconcile upserts the derived entry and walks its status into processing.
// wasPublished reports whether the entry was published before this update,
// so renderEntry can restore that state afterward.
func (p *Pipeline) reconcile(derived *catalog.Entry) (entry *catalog.Entry, updated, wasPublished bool, err error) {
	entry, updated, err = p.Catalog.UpsertBySource(derived)
	if err != nil {
		return nil, false, false, err
	}
	wasPublished = entry.Status == catalog.StatusPublished

	err = p.Catalog.Apply(entry.ID, func(e *catalog.Entry) error {
		e.LastError = ""
		return e.Transition(catalog.StatusProcessing)
	})
	if err != nil {
		return nil, false, false, err
	}
	entry, _ = p.Catalog.Get(entry.ID)
	return entry, updated, wasPublished, nil
}

// renderEntry writes the post file, flips the entry to completed (and back
// to published when it was before), and refreshes the listing artifacts.
func (p *Pipeline) renderEntry(entry *catalog.Entry, wasPublished bool) (string, error) {
	outPath, err := p.Renderer.WritePost(entry)
	if err != nil {
		applyErr := p.Catalog.Apply(entry.ID, func(e *catalog.Entry) error {
			e.LastError = err.Error()
			return e.Transition(catalog.StatusError)
		})
		if applyErr != nil {
			p.Log.Error("could not record render failure", slog.String("slug", entry.Slug), slog.Any("error", applyErr))
		}
		return "", err
	}

	err = p.Catalog.Apply(entry.ID, func(e *catalog.Entry) error {
		if err := e.Transition(catalog.StatusCompleted); err != nil {
			return err
		}
		if wasPublished {
			return e.Transition(catalog.StatusPublished)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if p.Config.UpdateListing {
		if err := p.RefreshSite(); err != nil {
			return "", err
		}
	}
	return outPath, nil
}

// Publish flips a completed entry to published and refreshes the listing.
func (p *Pipeline) Publish(id string) error {
	err := p.Catalog.Apply(id, func(e *catalog.Entry) error {
		return e.Transition(catalog.StatusPublished)
	})
	if err != nil {
		return err
	}
	return p.RefreshSite()
}

// Unpublish removes the entry from the catalog and deletes its rendered file
// and image. Only ever called from an explicit user action.
func (p *Pipeline) Unpublish(id string) error {
	entry, err := p.Catalog.Remove(id)
	if err != nil {
		return err
	}
	if err := p.Renderer.RemovePost(entry, p.Config.ImagesDir); err != nil {
		return err
	}
	return p.RefreshSite()
}

// RefreshSite rebuilds the listing page and the shared blog-data.json from
// the current catalog.
func (p *Pipeline) RefreshSite() error {
	entries := p.Catalog.List()
	if err := p.Renderer.WriteListing(entries); err != nil {
		return err
	}
	return p.Renderer.WriteIndex(entries)
}

// ListOrphans compares the catalog against the rendered output directory.
func (p *Pipeline) ListOrphans() (catalog.OrphanReport, error) {
	files, err := p.Renderer.RenderedFiles()
	if err != nil {
		return catalog.OrphanReport{}, err
	}
	return p.Catalog.FindOrphans(files), nil
}

// RemoveStrays deletes rendered files that have no catalog entry. Callers
// confirm with the user first; this never touches files the catalog knows.
func (p *Pipeline) RemoveStrays(files []string) (int, error) {
	removed := 0
	for _, f := range files {
		if err := p.Renderer.RemoveRendered(f); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// failEntry records an extraction failure against an existing entry for this
// source, if one exists. A brand-new source that fails extraction never
// enters the catalog.
func (p *Pipeline) failEntry(source string, cause error) {
	entry, ok := p.Catalog.BySource(sourceKey(source))
	if !ok {
		return
	}
	err := p.Catalog.Apply(entry.ID, func(e *catalog.Entry) error {
		e.LastError = cause.Error()
		if e.Status != catalog.StatusProcessing {
			if err := e.Transition(catalog.StatusProcessing); err != nil {
				return err
			}
		}
		return e.Transition(catalog.StatusError)
	})
	if err != nil {
		p.Log.Error("could not record extraction failure", slog.String("source", source), slog.Any("error", err))
	}
}

// sourceKey normalizes a source to the catalog's sourceFile key: the bare
// file name for local paths, the full URL otherwise. Files keep working when
// the input directory moves.
func sourceKey(source string) string {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source
	}
	return filepath.Base(source)
}

func (p *Pipeline) fail(emit progress.Callback, start time.Time, stage, msg string, err error) error {
	perr := &PipelineError{Stage: stage, Message: msg, Err: err}
	emit(progress.Event{Stage: progress.Stage(stage), Message: perr.Error(), Elapsed: time.Since(start), Error: perr})
	return perr
}

// PendingRecord pairs a discovered source file with its catalog state, for
// the scan listing the review shell shows.
type PendingRecord struct {
	Path     string
	Name     string
	SizeMB   float64
	Modified time.Time
	Status   catalog.Status
	Slug     string
}

// Scan discovers PDF files in the input directory and pairs each with its
// catalog entry, if any. Files with no entry show as pending.
func (p *Pipeline) Scan() ([]PendingRecord, error) {
	dirEntries, err := os.ReadDir(p.Config.InputDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan input dir %s: %w", p.Config.InputDir, err)
	}

	var records []PendingRecord
	for _, ent := range dirEntries {
		if ent.IsDir() || !strings.EqualFold(filepath.Ext(ent.Name()), ".pdf") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		rec := PendingRecord{
			Path:     filepath.Join(p.Config.InputDir, ent.Name()),
			Name:     ent.Name(),
			SizeMB:   float64(info.Size()) / (1024 * 1024),
			Modified: info.ModTime(),
			Status:   catalog.StatusPending,
		}
		if entry, ok := p.Catalog.BySource(ent.Name()); ok {
			rec.Status = entry.Status
			rec.Slug = entry.Slug
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// ProcessAll runs every discovered source through the pipeline, collecting
// per-item failures instead of stopping at the first one.
func (p *Pipeline) ProcessAll(ctx context.Context, onProgress progress.Callback) (processed int, failures map[string]error, err error) {
	records, err := p.Scan()
	if err != nil {
		return 0, nil, err
	}

	failures = make(map[string]error)
	for _, rec := range records {
		if _, runErr := p.Run(ctx, Options{Source: rec.Path, OnProgress: onProgress}); runErr != nil {
			failures[rec.Name] = runErr
			continue
		}
		processed++
	}
	return processed, failures, nil
}
