package content

import "strings"

// DefaultTagCap bounds the number of suggested tags before the fallback is
// appended.
const DefaultTagCap = 6

// FallbackTag is always present in a suggestion set.
const FallbackTag = "lifestyle"

// tagRule maps a keyword set to the tags it implies. Rules are ordered so
// suggestions come out deterministically.
type tagRule struct {
	keywords []string
	tags     []string
}

var tagRules = []tagRule{
	{[]string{"restaurant", "dining", "menu", "brunch", "food"}, []string{"food", "restaurants"}},
	{[]string{"cocktail", "brewery", "bar crawl", "happy hour"}, []string{"cocktails", "nightlife"}},
	{[]string{"concert", "band", "festival", "music"}, []string{"music", "concerts"}},
	{[]string{"trip", "vacation", "travel", "road trip"}, []string{"travel"}},
	{[]string{"hike", "hiking", "trail", "mountain"}, []string{"hiking", "outdoors"}},
	{[]string{"cat", "kitten", "pet"}, []string{"pets", "cats"}},
	{[]string{"phoenix", "scottsdale", "tempe", "arizona"}, []string{"phoenix", "arizona"}},
	{[]string{"nashville"}, []string{"nashville"}},
	{[]string{"gatlinburg"}, []string{"gatlinburg"}},
	{[]string{"los angeles", "hollywood"}, []string{"los angeles"}},
	{[]string{"review", "rating"}, []string{"reviews"}},
	{[]string{"event", "opening"}, []string{"events"}},
}

// SuggestTags matches the cleaned text against the keyword vocabulary and
// returns the implied tags, deduplicated in rule order, capped at limit,
// with the fallback tag always appended. Suggestions are advisory:
// user-edited tags always win over a re-derived set.
func SuggestTags(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultTagCap
	}
	lower := strings.ToLower(text)

	var tags []string
	seen := make(map[string]bool)
	for _, rule := range tagRules {
		if !matchesAny(lower, rule.keywords) {
			continue
		}
		for _, t := range rule.tags {
			if !seen[t] {
				tags = append(tags, t)
				seen[t] = true
			}
		}
	}

	if len(tags) > limit {
		tags = tags[:limit]
	}
	if !contains(tags, FallbackTag) {
		tags = append(tags, FallbackTag)
	}
	return tags
}

// NormalizeTags lowercases, trims, and deduplicates a comma-separated tag
// string the way the review shell accepts it.
func NormalizeTags(input string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(input, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		tags = append(tags, t)
		seen[t] = true
	}
	return tags
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
