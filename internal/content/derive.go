package content

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// slugSuffix is appended to every generated slug so post filenames are
	// recognizable next to hand-written site pages.
	slugSuffix = "-blog"

	// DefaultMinParagraphLen is the threshold below which a colon-terminated
	// paragraph is treated as a section header rather than excerpt material.
	DefaultMinParagraphLen = 50

	// DefaultMaxExcerptLen caps derived excerpts.
	DefaultMaxExcerptLen = 200

	// wordsPerMinute is the reading speed assumed by ReadTime.
	wordsPerMinute = 200
)

var (
	nonWordRe     = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	nonSlugRe     = regexp.MustCompile(`[^a-z0-9\s-]`)
	spacesRe      = regexp.MustCompile(`\s+`)
	hyphenRunRe   = regexp.MustCompile(`-+`)
	nonImageRe    = regexp.MustCompile(`[^a-z0-9]`)
	underscoreRun = regexp.MustCompile(`_+`)
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
)

// TitleFromFilename derives a human title from a source filename:
// "my_trip-report.pdf" becomes "My Trip Report". The title is editable
// afterward and never re-derived.
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = nonWordRe.ReplaceAllString(base, " ")

	words := strings.Fields(base)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// Slugify turns a title into a filesystem- and URL-safe identifier ending in
// the fixed "-blog" suffix. The result contains only [a-z0-9-], never starts
// or ends with a hyphen, and is stable: Slugify(SlugBase(s)) == s for any
// generated slug s.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonSlugRe.ReplaceAllString(s, "")
	s = spacesRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s + slugSuffix
}

// SlugBase strips the fixed suffix from a generated slug.
func SlugBase(slug string) string {
	return strings.TrimSuffix(slug, slugSuffix)
}

// Excerpt picks the first substantial paragraph: longer than minLen and not a
// short colon-terminated header. Long paragraphs are truncated to maxLen on a
// word boundary (kept only when the boundary preserves at least 80% of
// maxLen) with a trailing ellipsis.
func Excerpt(paragraphs []string, minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = DefaultMinParagraphLen
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxExcerptLen
	}

	for _, para := range paragraphs {
		if strings.HasSuffix(para, ":") && len(para) < minLen {
			continue // section header, not excerpt material
		}
		if len(para) <= maxLen {
			return para
		}
		cut := cutBytes(para, maxLen)
		if idx := strings.LastIndex(cut, " "); idx > maxLen*4/5 {
			cut = cut[:idx]
		}
		return cut + "..."
	}

	joined := strings.Join(paragraphs, " ")
	if joined == "" {
		return "No excerpt available."
	}
	if len(joined) > maxLen {
		joined = cutBytes(joined, maxLen) + "..."
	}
	return joined
}

// cutBytes truncates s to at most n bytes, backing up so a multibyte rune is
// never split.
func cutBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ImageFilename derives the conventional featured-image name from the source
// filename: "My Trip.pdf" -> "my_trip_blog.png". Purely a naming convention;
// no content-based matching is attempted.
func ImageFilename(sourceName string) string {
	base := filepath.Base(sourceName)
	base = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	base = nonImageRe.ReplaceAllString(base, "_")
	base = underscoreRun.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	return base + "_blog.png"
}

// ReadTime estimates reading minutes from paragraph-wrapped HTML.
func ReadTime(contentHTML string) int {
	text := htmlTagRe.ReplaceAllString(contentHTML, " ")
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute/2) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// PeelTitleBlock removes a leading run of short title-ish paragraphs (at most
// three, each ten words or fewer and not ending in sentence punctuation) and
// returns them joined as a display title plus the remaining body. When
// nothing peels off, fallback is used as the title and the body is untouched.
// Exact repeats inside the title block are dropped, as are body-leading
// duplicates of the fallback title.
func PeelTitleBlock(paragraphs []string, fallback string) (string, []string) {
	body := trimTitlePrefix(paragraphs, fallback)

	var parts []string
	for len(body) > 0 && len(parts) < 3 {
		cand := strings.TrimSpace(body[0])
		if len(strings.Fields(cand)) > 10 || endsSentence(cand) {
			break
		}
		parts = append(parts, strings.TrimRight(cand, ":"))
		body = body[1:]
	}

	if len(parts) == 0 {
		return fallback, body
	}

	seen := make(map[string]bool, len(parts))
	unique := parts[:0]
	for _, p := range parts {
		key := strings.ToLower(p)
		if !seen[key] {
			unique = append(unique, p)
			seen[key] = true
		}
	}
	return strings.Join(unique, " - "), body
}

// trimTitlePrefix strips a duplicated filename-derived title from the front
// of the first paragraph, a common artifact of PDFs that repeat the document
// title inline.
func trimTitlePrefix(paragraphs []string, title string) []string {
	if len(paragraphs) == 0 || title == "" {
		return paragraphs
	}
	first := paragraphs[0]
	prefix := strings.ToLower(strings.TrimRight(title, ":"))
	if !strings.HasPrefix(strings.ToLower(first), prefix) {
		return paragraphs
	}
	trimmed := strings.TrimSpace(strings.TrimLeft(first[len(prefix):], ": "))
	if trimmed == "" {
		return paragraphs
	}
	out := append([]string{trimmed}, paragraphs[1:]...)
	return out
}

// WrapHTML converts paragraphs into the escaped HTML body stored in the
// catalog. Short colon-terminated paragraphs become sub-headers; everything
// else becomes a <p>. All text is HTML-escaped here, so the renderer can
// treat the stored body as the single trusted raw-HTML field.
func WrapHTML(paragraphs []string) string {
	var b strings.Builder
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if strings.HasSuffix(para, ":") && len(para) < 30 {
			b.WriteString("<h3>" + html.EscapeString(strings.TrimRight(para, ":")) + "</h3>")
		} else {
			b.WriteString("<p>" + html.EscapeString(para) + "</p>")
		}
	}
	return b.String()
}

func capitalize(w string) string {
	runes := []rune(strings.ToLower(w))
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
