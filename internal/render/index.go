package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mantooth/blogsmith/internal/catalog"
)

// IndexFileName is the shared metadata file both the listing page's tag
// filter and the homepage "recent posts" widget fetch. Having one JSON file
// read by both pages replaces the old pattern of the homepage scraping the
// listing page's markup.
const IndexFileName = "blog-data.json"

// IndexPost is the public subset of a catalog entry exposed to the site.
type IndexPost struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	PublishDate string   `json:"publishDate"`
	Excerpt     string   `json:"excerpt"`
	Image       string   `json:"featuredImage"`
	Tags        []string `json:"tags"`
	ReadTime    int      `json:"readTime"`
	FileName    string   `json:"fileName"`
}

type indexDocument struct {
	Posts       []IndexPost `json:"posts"`
	TotalPosts  int         `json:"totalPosts"`
	LastUpdated string      `json:"lastUpdated"`
}

// WriteIndex writes blog-data.json with every published or completed entry in
// catalog display order.
func (r *Renderer) WriteIndex(entries []*catalog.Entry) error {
	doc := indexDocument{LastUpdated: time.Now().UTC().Format(time.RFC3339)}

	for _, e := range entries {
		if e.Status != catalog.StatusPublished && e.Status != catalog.StatusCompleted {
			continue
		}
		doc.Posts = append(doc.Posts, IndexPost{
			ID:          e.ID,
			Title:       e.Title,
			Slug:        e.Slug,
			PublishDate: e.PublishDate,
			Excerpt:     e.Excerpt,
			Image:       e.Image,
			Tags:        e.DisplayTags(),
			ReadTime:    e.ReadTime,
			FileName:    e.FileName,
		})
	}
	doc.TotalPosts = len(doc.Posts)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &RenderError{Op: "index", Path: IndexFileName, Err: err}
	}

	path := filepath.Join(r.siteDir, IndexFileName)
	if err := writeAtomic(path, data); err != nil {
		return &RenderError{Op: "index", Path: path, Err: err}
	}
	return nil
}

// RecentPosts reads the shared index and returns the n most recent posts by
// publish date, newest first. This is the homepage widget's data source.
func RecentPosts(indexPath string, n int) ([]IndexPost, error) {
	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &RenderError{Op: "recent", Path: indexPath, Err: err}
	}

	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &RenderError{Op: "recent", Path: indexPath, Err: err}
	}

	sort.SliceStable(doc.Posts, func(i, j int) bool {
		return parseDate(doc.Posts[i].PublishDate).After(parseDate(doc.Posts[j].PublishDate))
	})
	if n > 0 && len(doc.Posts) > n {
		doc.Posts = doc.Posts[:n]
	}
	return doc.Posts, nil
}
