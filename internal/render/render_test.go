package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantooth/blogsmith/internal/catalog"
)

func tempRenderer(t *testing.T) (*Renderer, string, string) {
	t.Helper()
	root := t.TempDir()
	outputDir := filepath.Join(root, "site", "blogs")
	siteDir := filepath.Join(root, "site")
	r, err := New(outputDir, siteDir, "Mantooth", "blogs/")
	require.NoError(t, err)
	return r, outputDir, siteDir
}

func completedEntry(slug, title string) *catalog.Entry {
	e := catalog.NewEntry(slug, title, slug+".pdf")
	e.Status = catalog.StatusCompleted
	e.Content = "<p>First paragraph.</p>\n<p>Second paragraph.</p>"
	e.ParagraphCount = 2
	e.ReadTime = 1
	e.Tags = []string{"food", "lifestyle"}
	e.Image = slug + "_blog.png"
	e.Excerpt = "First paragraph."
	e.PublishDate = "2026-03-14"
	return e
}

func TestWritePost(t *testing.T) {
	r, outputDir, _ := tempRenderer(t)
	e := completedEntry("tacos-blog", "Taco Tour")

	path, err := r.WritePost(e)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "tacos-blog.html"), path)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "Taco Tour")
	assert.Contains(t, page, "March 14, 2026")
	assert.Contains(t, page, "<p>First paragraph.</p>")
	assert.Contains(t, page, "tacos-blog_blog.png")
	assert.Contains(t, page, "Food")
	assert.Contains(t, page, "1 min read")
}

// Re-rendering an unchanged entry must produce byte-identical output, or
// every reprocess would dirty the deployed site.
func TestWritePostIdempotent(t *testing.T) {
	r, _, _ := tempRenderer(t)
	e := completedEntry("tacos-blog", "Taco Tour")

	path, err := r.WritePost(e)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = r.WritePost(e)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWritePostEscapesTitle(t *testing.T) {
	r, _, _ := tempRenderer(t)
	e := completedEntry("xss-blog", `<script>alert("x")</script>`)

	path, err := r.WritePost(e)
	require.NoError(t, err)
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(html), `<script>alert`)
}

func TestWriteListing(t *testing.T) {
	r, _, siteDir := tempRenderer(t)

	published := completedEntry("tacos-blog", "Taco Tour")
	published.Status = catalog.StatusPublished
	pending := completedEntry("draft-blog", "Unfinished Draft")
	pending.Status = catalog.StatusPending

	require.NoError(t, r.WriteListing([]*catalog.Entry{published, pending}))

	html, err := os.ReadFile(filepath.Join(siteDir, "blogs.html"))
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "Taco Tour")
	assert.NotContains(t, page, "Unfinished Draft")
	assert.Contains(t, page, `data-tags="food,lifestyle"`)
	assert.Contains(t, page, `data-url="blogs/tacos-blog.html"`)
}

func TestRemovePost(t *testing.T) {
	r, outputDir, _ := tempRenderer(t)
	imagesDir := t.TempDir()
	e := completedEntry("tacos-blog", "Taco Tour")

	path, err := r.WritePost(e)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, e.Image), []byte("png"), 0o644))

	require.NoError(t, r.RemovePost(e, imagesDir))
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, filepath.Join(imagesDir, e.Image))

	// Removing an already-removed post is not an error.
	require.NoError(t, r.RemovePost(e, imagesDir))
	_ = outputDir
}

func TestRenderedFiles(t *testing.T) {
	r, outputDir, _ := tempRenderer(t)

	got, err := r.RenderedFiles()
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.WritePost(completedEntry("tacos-blog", "Taco Tour"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "notes.txt"), []byte("x"), 0o644))

	got, err = r.RenderedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"tacos-blog.html"}, got)
}

func TestWriteIndexAndRecentPosts(t *testing.T) {
	r, _, siteDir := tempRenderer(t)

	older := completedEntry("older-blog", "Older Post")
	older.PublishDate = "2026-01-02"
	newer := completedEntry("newer-blog", "Newer Post")
	newer.PublishDate = "2026-03-14"
	draft := completedEntry("draft-blog", "Draft")
	draft.Status = catalog.StatusPending

	require.NoError(t, r.WriteIndex([]*catalog.Entry{older, newer, draft}))

	indexPath := filepath.Join(siteDir, IndexFileName)
	data, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Draft")
	assert.NotContains(t, string(data), "sourceFile", "index must not leak catalog internals")
	assert.NotContains(t, string(data), "touchedFields")

	recent, err := RecentPosts(indexPath, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Newer Post", recent[0].Title)

	all, err := RecentPosts(indexPath, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"Newer Post", "Older Post"}, []string{all[0].Title, all[1].Title})
}

func TestRecentPostsMissingIndex(t *testing.T) {
	got, err := RecentPosts(filepath.Join(t.TempDir(), IndexFileName), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestURLPrefixNormalized(t *testing.T) {
	root := t.TempDir()
	r, err := New(filepath.Join(root, "blogs"), root, "Mantooth", "blogs")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(r.urlPrefix, "/"))
}
