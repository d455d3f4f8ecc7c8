package content

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	hyphenBreakRe  = regexp.MustCompile(`(\w+)-\s+(\w+)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	pageArtifactRe = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)
	bareNumberRe   = regexp.MustCompile(`^\d{1,4}$`)
)

// Segment splits raw extracted text into cleaned paragraphs. PDF extraction
// often strips the leading spaces that would normally mark a paragraph, so the
// splitter works from three signals, in order of preference:
//
//  1. a truly blank line
//  2. a line indented by two or more spaces (when a paragraph is in progress)
//  3. a sentence boundary: the previous line ends with . ? or ! and this line
//     starts with an uppercase letter
//
// Rule 3 is heuristic and documented as lossy; it errs toward over-splitting
// rather than gluing unrelated sentences together. Bare page numbers and
// "Page N" artifacts are dropped. The result is stable under re-application:
// segmenting the joined output again yields the same paragraphs.
func Segment(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(strings.ReplaceAll(raw, "\r\n", "\n"), "\r", "\n"), "\n")

	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		p := cleanParagraph(strings.Join(current, " "))
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
		current = nil
	}

	for _, line := range lines {
		raw := strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" {
			flush()
			continue
		}
		if isPageArtifact(trimmed) {
			continue
		}

		indent := len(raw) - len(strings.TrimLeft(raw, " "))
		newPara := false

		if indent >= 2 && len(current) > 0 {
			newPara = true
		} else if len(current) > 0 && endsSentence(current[len(current)-1]) && startsUpper(trimmed) {
			newPara = true
		}

		if newPara {
			flush()
		}
		current = append(current, trimmed)
	}
	flush()

	return paragraphs
}

// Normalize runs Segment and rejoins the paragraphs with the double
// line-break convention the rest of the pipeline expects.
func Normalize(raw string) string {
	return strings.Join(Segment(raw), "\n\n")
}

func cleanParagraph(text string) string {
	// Repair words hyphenated across line ends.
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
	text = whitespaceRe.ReplaceAllString(text, " ")

	// Straighten typographic quotes.
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	return strings.TrimSpace(replacer.Replace(text))
}

func isPageArtifact(line string) bool {
	return bareNumberRe.MatchString(line) || pageArtifactRe.MatchString(line)
}

func endsSentence(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line[len(line)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

func startsUpper(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsUpper(r)
}
