package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "blank line separates paragraphs",
			raw:  "First paragraph here\n\nSecond paragraph here",
			want: []string{"First paragraph here", "Second paragraph here"},
		},
		{
			name: "wrapped lines join into one paragraph",
			raw:  "we stayed at\nthe lodge all weekend",
			want: []string{"we stayed at the lodge all weekend"},
		},
		{
			name: "sentence boundary splits",
			raw:  "It was a great night.\nNext morning we drove home",
			want: []string{"It was a great night.", "Next morning we drove home"},
		},
		{
			name: "lowercase continuation does not split",
			raw:  "The band played until 2am.\nand we stayed for all of it",
			want: []string{"The band played until 2am. and we stayed for all of it"},
		},
		{
			name: "indented line starts a new paragraph",
			raw:  "First paragraph text\n  Indented second paragraph",
			want: []string{"First paragraph text", "Indented second paragraph"},
		},
		{
			name: "page artifacts dropped",
			raw:  "Real content here\n12\nPage 3 of 10\nstill the same paragraph",
			want: []string{"Real content here still the same paragraph"},
		},
		{
			name: "hyphenated line break repaired",
			raw:  "The view was beauti-\nful beyond words",
			want: []string{"The view was beautiful beyond words"},
		},
		{
			name: "smart quotes straightened",
			raw:  "She said “hello” and ‘goodbye’",
			want: []string{`She said "hello" and 'goodbye'`},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "whitespace only",
			raw:  "   \n\t\n  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.raw))
		})
	}
}

func TestSegmentCRLF(t *testing.T) {
	got := Segment("First paragraph\r\n\r\nSecond paragraph")
	assert.Equal(t, []string{"First paragraph", "Second paragraph"}, got)
}

// Segmenting already-normalized text must not split or merge anything
// further, or edits in the review shell would drift on every save.
func TestNormalizeIdempotent(t *testing.T) {
	raw := "We found a tiny bar downtown.\nThe bartender mixed an incredible\nold fashioned for us.\n\nNext day:\n  We hiked the canyon trail.\n4\nIt took three hours."

	once := Normalize(raw)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, Segment(once), Segment(twice))
}
