// Package render fills the embedded HTML templates from catalog entries and
// writes the static site artifacts: one page per post, the listing page, and
// the shared blog-data.json index.
//
// Everything user-supplied goes through html/template's contextual
// auto-escaping. The one exception is the post body, which internal/content
// escapes paragraph by paragraph before it is stored, so it is injected as
// template.HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mantooth/blogsmith/internal/catalog"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// RenderError reports a failed render operation: unwritable output directory,
// missing template data, and the like. It is fatal for the one operation and
// never crashes the process.
type RenderError struct {
	Op   string
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer writes site artifacts. It never deletes files it did not write.
type Renderer struct {
	outputDir string // per-post HTML files
	siteDir   string // listing page + blog-data.json
	siteName  string
	urlPrefix string // listing-relative path to the output dir, e.g. "blogs/"

	post    *template.Template
	listing *template.Template
}

// New loads the embedded templates and returns a renderer.
func New(outputDir, siteDir, siteName, urlPrefix string) (*Renderer, error) {
	post, err := template.ParseFS(templateFS, "templates/post.html.tmpl")
	if err != nil {
		return nil, &RenderError{Op: "parse", Path: "post.html.tmpl", Err: err}
	}
	listing, err := template.ParseFS(templateFS, "templates/listing.html.tmpl")
	if err != nil {
		return nil, &RenderError{Op: "parse", Path: "listing.html.tmpl", Err: err}
	}
	if urlPrefix != "" && !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Renderer{
		outputDir: outputDir,
		siteDir:   siteDir,
		siteName:  siteName,
		urlPrefix: urlPrefix,
		post:      post,
		listing:   listing,
	}, nil
}

type postData struct {
	SiteName      string
	Title         string
	FormattedDate string
	Year          int
	Image         string
	Content       template.HTML
	Tags          []string
	ReadTime      int
}

// WritePost renders the entry to <outputDir>/<slug>.html and returns the
// written path. Re-rendering an unchanged entry produces byte-identical
// output; the only date involved is the entry's publish date.
func (r *Renderer) WritePost(e *catalog.Entry) (string, error) {
	date := parseDate(e.PublishDate)

	data := postData{
		SiteName:      r.siteName,
		Title:         e.Title,
		FormattedDate: date.Format("January 2, 2006"),
		Year:          date.Year(),
		Image:         e.Image,
		Content:       template.HTML(e.Content),
		Tags:          displayTags(e),
		ReadTime:      e.ReadTime,
	}

	var buf bytes.Buffer
	if err := r.post.Execute(&buf, data); err != nil {
		return "", &RenderError{Op: "post", Path: e.FileName, Err: err}
	}

	path := filepath.Join(r.outputDir, e.FileName)
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", &RenderError{Op: "post", Path: path, Err: err}
	}
	return path, nil
}

type listingCard struct {
	Title         string
	Excerpt       string
	Image         string
	FormattedDate string
	Tags          []string
	TagsAttr      string // comma-joined, consumed by client-side tag filtering
	URL           string // consumed by client-side click navigation
}

type listingData struct {
	SiteName string
	Year     int
	Posts    []listingCard
}

// WriteListing rebuilds the listing page from the full catalog, newest entry
// first in catalog display order. Each card carries data-tags and data-url
// attributes for the site's client-side filtering.
func (r *Renderer) WriteListing(entries []*catalog.Entry) error {
	data := listingData{SiteName: r.siteName, Year: time.Now().Year()}

	for _, e := range entries {
		if e.Status != catalog.StatusPublished && e.Status != catalog.StatusCompleted {
			continue
		}
		tags := displayTags(e)
		data.Posts = append(data.Posts, listingCard{
			Title:         e.Title,
			Excerpt:       e.Excerpt,
			Image:         e.Image,
			FormattedDate: parseDate(e.PublishDate).Format("January 2, 2006"),
			Tags:          tags,
			TagsAttr:      strings.Join(e.DisplayTags(), ","),
			URL:           r.urlPrefix + e.FileName,
		})
	}

	var buf bytes.Buffer
	if err := r.listing.Execute(&buf, data); err != nil {
		return &RenderError{Op: "listing", Path: "blogs.html", Err: err}
	}

	path := filepath.Join(r.siteDir, "blogs.html")
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return &RenderError{Op: "listing", Path: path, Err: err}
	}
	return nil
}

// RemovePost deletes the entry's rendered file and, when present, its
// referenced image. Called only from the explicit unpublish/nuke path.
func (r *Renderer) RemovePost(e *catalog.Entry, imagesDir string) error {
	path := filepath.Join(r.outputDir, e.FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &RenderError{Op: "remove", Path: path, Err: err}
	}
	if e.Image != "" && imagesDir != "" {
		img := filepath.Join(imagesDir, e.Image)
		if err := os.Remove(img); err != nil && !os.IsNotExist(err) {
			return &RenderError{Op: "remove", Path: img, Err: err}
		}
	}
	return nil
}

// RemoveRendered deletes a rendered file by base name. Used for stray files
// that have no catalog entry, so there is no Entry to hand RemovePost.
func (r *Renderer) RemoveRendered(name string) error {
	path := filepath.Join(r.outputDir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &RenderError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// RenderedFiles lists the HTML file names currently in the output directory,
// for the orphan scan.
func (r *Renderer) RenderedFiles() ([]string, error) {
	entries, err := os.ReadDir(r.outputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &RenderError{Op: "scan", Path: r.outputDir, Err: err}
	}
	var out []string
	for _, ent := range entries {
		if !ent.IsDir() && strings.HasSuffix(ent.Name(), ".html") {
			out = append(out, ent.Name())
		}
	}
	return out, nil
}

// displayTags title-cases the deduplicated tags for page display; storage
// stays lowercase.
func displayTags(e *catalog.Entry) []string {
	tags := e.DisplayTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = titleCase(t)
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func parseDate(iso string) time.Time {
	if t, err := time.Parse("2006-01-02", iso); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t
	}
	return time.Time{}
}

// writeAtomic writes via a temp file in the target directory plus rename, so
// a kill mid-write never leaves a truncated page.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
