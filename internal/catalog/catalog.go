package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mantooth/blogsmith/internal/content"
)

// ErrNotFound is returned when an entry ID is not in the catalog.
var ErrNotFound = errors.New("entry not found in catalog")

// SlugCollisionError reports two different titles normalizing to the same
// slug when disambiguation is disabled.
type SlugCollisionError struct {
	Slug string
}

func (e *SlugCollisionError) Error() string {
	return fmt.Sprintf("slug %q already exists in the catalog", e.Slug)
}

// document is the persisted JSON shape. Post order is display and pagination
// order.
type document struct {
	Posts       []*Entry `json:"posts"`
	TotalPosts  int      `json:"totalPosts"`
	LastUpdated string   `json:"lastUpdated"`
}

// Catalog is the single source of truth for blog entries. It is read fully
// into memory on startup and rewritten atomically on every mutation; a mutex
// serializes all writers so no two renders race on the file.
type Catalog struct {
	mu           sync.Mutex
	path         string
	disambiguate bool
	doc          document
}

// Load reads the catalog from path, returning an empty catalog when the file
// does not exist yet. disambiguate controls the slug collision policy: when
// true colliding slugs get a numeric suffix, when false they are rejected
// with SlugCollisionError.
func Load(path string, disambiguate bool) (*Catalog, error) {
	c := &Catalog{path: path, disambiguate: disambiguate}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return c.path
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.doc.Posts)
}

// List returns copies of all entries in display order.
func (c *Catalog) List() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entry, len(c.doc.Posts))
	for i, e := range c.doc.Posts {
		out[i] = e.clone()
	}
	return out
}

// Get returns a copy of the entry with the given ID.
func (c *Catalog) Get(id string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.find(id); e != nil {
		return e.clone(), true
	}
	return nil, false
}

// BySource returns a copy of the entry originating from sourcePath.
func (c *Catalog) BySource(sourcePath string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.doc.Posts {
		if e.SourcePath == sourcePath {
			return e.clone(), true
		}
	}
	return nil, false
}

// UpsertBySource reconciles a freshly derived entry against the catalog.
// A new source is appended; a known source is updated in place, refreshing
// derived fields while preserving anything the user has touched. The
// existing entry keeps its slug, creation time, status, and publish date, so
// reprocessing never breaks published links or duplicates records. The
// second return is true when an existing entry was updated.
func (c *Catalog) UpsertBySource(derived *Entry) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.doc.Posts {
		if e.SourcePath != derived.SourcePath {
			continue
		}
		mergeDerived(e, derived)
		if err := c.save(); err != nil {
			return nil, false, err
		}
		return e.clone(), true, nil
	}

	slug, err := c.uniqueSlug(derived.Slug)
	if err != nil {
		return nil, false, err
	}
	derived.Slug = slug
	derived.ID = slug
	derived.FileName = slug + ".html"

	c.doc.Posts = append(c.doc.Posts, derived)
	if err := c.save(); err != nil {
		return nil, false, err
	}
	return derived.clone(), false, nil
}

// mergeDerived copies derived fields onto an existing entry, skipping any
// field the user has edited. This is the key correctness property of the
// whole pipeline: a blind overwrite on reprocess would destroy user edits.
func mergeDerived(existing, derived *Entry) {
	if !existing.IsTouched(FieldTitle) {
		existing.Title = derived.Title
	}
	if !existing.IsTouched(FieldTags) {
		existing.Tags = append([]string(nil), derived.Tags...)
	}
	if !existing.IsTouched(FieldContent) {
		existing.Content = derived.Content
		existing.ParagraphCount = derived.ParagraphCount
		existing.ReadTime = derived.ReadTime
	}
	if !existing.IsTouched(FieldExcerpt) {
		existing.Excerpt = derived.Excerpt
	}
	if !existing.IsTouched(FieldImage) {
		existing.Image = derived.Image
	}
}

// UpdateField applies a user edit and marks the field touched. Content edits
// arrive as plain paragraph text and are re-segmented and re-escaped before
// storage.
func (c *Catalog) UpdateField(id string, f Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch f {
	case FieldTitle:
		e.Title = value
	case FieldTags:
		e.Tags = content.NormalizeTags(value)
	case FieldContent:
		paragraphs := content.Segment(value)
		e.Content = content.WrapHTML(paragraphs)
		e.ParagraphCount = len(paragraphs)
		e.ReadTime = content.ReadTime(e.Content)
	case FieldImage:
		e.Image = value
	case FieldExcerpt:
		e.Excerpt = value
	default:
		return fmt.Errorf("unknown field %q", f)
	}
	e.Touch(f)
	return c.save()
}

// ResetField clears a field's touched mark so the next reprocess re-derives
// it.
func (c *Catalog) ResetField(id string, f Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.ResetField(f)
	return c.save()
}

// Apply runs fn against the live entry under the writer lock and persists the
// result. Used for status transitions and pipeline updates.
func (c *Catalog) Apply(id string, fn func(*Entry) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := fn(e); err != nil {
		return err
	}
	return c.save()
}

// Remove deletes the entry and returns its final state so the caller can
// delete the rendered file and image. Only the explicit unpublish/nuke path
// calls this; nothing is garbage-collected implicitly.
func (c *Catalog) Remove(id string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.doc.Posts {
		if e.ID == id {
			c.doc.Posts = append(c.doc.Posts[:i], c.doc.Posts[i+1:]...)
			if err := c.save(); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// DuplicateGroup is a set of entries sharing a slug or source path.
type DuplicateGroup struct {
	Key     string // the shared slug or source path
	Entries []*Entry
}

// FindDuplicates returns entries sharing the same source path or the same
// slug. A healthy catalog returns nothing.
func (c *Catalog) FindDuplicates() []DuplicateGroup {
	c.mu.Lock()
	defer c.mu.Unlock()

	var groups []DuplicateGroup
	groups = append(groups, groupBy(c.doc.Posts, func(e *Entry) string { return e.SourcePath })...)
	groups = append(groups, groupBy(c.doc.Posts, func(e *Entry) string { return e.Slug })...)
	return groups
}

func groupBy(posts []*Entry, key func(*Entry) string) []DuplicateGroup {
	byKey := make(map[string][]*Entry)
	var order []string
	for _, e := range posts {
		k := key(e)
		if k == "" {
			continue
		}
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], e.clone())
	}

	var groups []DuplicateGroup
	for _, k := range order {
		if len(byKey[k]) > 1 {
			groups = append(groups, DuplicateGroup{Key: k, Entries: byKey[k]})
		}
	}
	return groups
}

// OrphanReport lists both directions of catalog/disk disagreement. Orphans
// are reported, never repaired automatically.
type OrphanReport struct {
	// MissingFiles are published or completed entries with no rendered file.
	MissingFiles []*Entry
	// StrayFiles are rendered file names with no catalog entry.
	StrayFiles []string
}

// Empty reports whether the catalog and the rendered output agree.
func (r OrphanReport) Empty() bool {
	return len(r.MissingFiles) == 0 && len(r.StrayFiles) == 0
}

// FindOrphans compares the catalog against the rendered file names (base
// names, e.g. "my-trip-report-blog.html").
func (c *Catalog) FindOrphans(renderedFiles []string) OrphanReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	onDisk := make(map[string]bool, len(renderedFiles))
	for _, f := range renderedFiles {
		onDisk[filepath.Base(f)] = true
	}

	var report OrphanReport
	known := make(map[string]bool, len(c.doc.Posts))
	for _, e := range c.doc.Posts {
		known[e.FileName] = true
		if (e.Status == StatusPublished || e.Status == StatusCompleted) && !onDisk[e.FileName] {
			report.MissingFiles = append(report.MissingFiles, e.clone())
		}
	}
	for _, f := range renderedFiles {
		if !known[filepath.Base(f)] {
			report.StrayFiles = append(report.StrayFiles, filepath.Base(f))
		}
	}
	return report
}

func (c *Catalog) find(id string) *Entry {
	for _, e := range c.doc.Posts {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// uniqueSlug applies the collision policy: numeric-suffix disambiguation when
// enabled, SlugCollisionError otherwise. Caller holds the lock.
func (c *Catalog) uniqueSlug(slug string) (string, error) {
	taken := make(map[string]bool, len(c.doc.Posts))
	for _, e := range c.doc.Posts {
		taken[e.Slug] = true
	}
	if !taken[slug] {
		return slug, nil
	}
	if !c.disambiguate {
		return "", &SlugCollisionError{Slug: slug}
	}

	base := content.SlugBase(slug)
	for i := 2; ; i++ {
		candidate := content.Slugify(base + " " + strconv.Itoa(i))
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// save writes the catalog atomically: marshal to a temp file in the same
// directory, then rename over the old file. A process killed mid-write never
// leaves a truncated catalog behind. Caller holds the lock.
func (c *Catalog) save() error {
	c.doc.TotalPosts = len(c.doc.Posts)
	c.doc.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(c.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
