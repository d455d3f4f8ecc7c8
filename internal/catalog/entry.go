package catalog

import (
	"sort"
	"time"
)

// Field names an entry field whose user edits must survive reprocessing.
type Field string

const (
	FieldTitle   Field = "title"
	FieldTags    Field = "tags"
	FieldContent Field = "content"
	FieldImage   Field = "featuredImage"
	FieldExcerpt Field = "excerpt"
)

// Entry is one catalog record. The JSON field names are the contract the
// static site's scripts read, so they never change casually.
type Entry struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	SourcePath     string   `json:"sourceFile"`
	Excerpt        string   `json:"excerpt"`
	Content        string   `json:"content"` // paragraph-wrapped, pre-escaped HTML
	Tags           []string `json:"tags"`
	Image          string   `json:"featuredImage"`
	Status         Status   `json:"status"`
	PublishDate    string   `json:"publishDate"` // ISO date, defaults to processing date
	CreatedAt      string   `json:"createdAt"`   // RFC3339
	FileName       string   `json:"fileName"`
	ReadTime       int      `json:"readTime"`
	ParagraphCount int      `json:"paragraphCount"`

	// Touched records which fields a human has edited. Derived values never
	// overwrite a touched field on reprocess; an explicit reset untouches it.
	Touched []string `json:"touchedFields,omitempty"`

	// LastError holds the failure message when Status is error.
	LastError string `json:"lastError,omitempty"`
}

// NewEntry creates a pending record for a freshly discovered source.
func NewEntry(slug, title, sourcePath string) *Entry {
	now := time.Now()
	return &Entry{
		ID:          slug,
		Slug:        slug,
		Title:       title,
		SourcePath:  sourcePath,
		Status:      StatusPending,
		PublishDate: now.Format("2006-01-02"),
		CreatedAt:   now.UTC().Format(time.RFC3339),
		FileName:    slug + ".html",
	}
}

// Touch marks a field as user-edited.
func (e *Entry) Touch(f Field) {
	for _, t := range e.Touched {
		if t == string(f) {
			return
		}
	}
	e.Touched = append(e.Touched, string(f))
	sort.Strings(e.Touched)
}

// IsTouched reports whether the user has edited the field.
func (e *Entry) IsTouched(f Field) bool {
	for _, t := range e.Touched {
		if t == string(f) {
			return true
		}
	}
	return false
}

// ResetField clears the touched mark so the next reprocess re-derives the
// field. This is the user's explicit "take the derived value again" action.
func (e *Entry) ResetField(f Field) {
	out := e.Touched[:0]
	for _, t := range e.Touched {
		if t != string(f) {
			out = append(out, t)
		}
	}
	e.Touched = out
}

// DisplayTags returns the tags deduplicated for display; storage order is
// preserved as-is.
func (e *Entry) DisplayTags() []string {
	seen := make(map[string]bool, len(e.Tags))
	var out []string
	for _, t := range e.Tags {
		if !seen[t] {
			out = append(out, t)
			seen[t] = true
		}
	}
	return out
}

// clone returns a deep copy so callers can hand entries to the UI without
// racing the store.
func (e *Entry) clone() *Entry {
	cp := *e
	cp.Tags = append([]string(nil), e.Tags...)
	cp.Touched = append([]string(nil), e.Touched...)
	return &cp
}
