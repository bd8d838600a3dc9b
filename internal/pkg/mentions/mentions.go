// Package mentions scans response text for occurrences of tracked brand
// names. Matching is case-insensitive and word-boundary-aware, so "Acme"
// never matches inside "Acmex". When one tracked name is a substring of
// another ("Acme" vs "Acme Corp"), the longer name wins at a given start
// offset and the shorter one is suppressed there.
package mentions

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// SnippetRadius is the number of characters captured on each side of a
// match for display. Windows are clipped at text boundaries, not padded.
const SnippetRadius = 50

// Mention describes every occurrence of a single tracked name within one
// response. MentionPositions holds byte start offsets in scan order.
type Mention struct {
	BrandName        string   `json:"brand_name"`
	MentionCount     int      `json:"mention_count"`
	MentionPositions []int    `json:"mention_positions"`
	ContextSnippets  []string `json:"context_snippets"`
}

// Analysis is the full mention breakdown of one response. Every tracked
// competitor appears in CompetitorMentions, zero counts included, while
// MentionDetails carries only names that actually occurred, user brand
// first.
type Analysis struct {
	UserBrandMentions  int            `json:"user_brand_mentions"`
	CompetitorMentions map[string]int `json:"competitor_mentions"`
	TotalMentions      int            `json:"total_mentions"`
	MentionDetails     []Mention      `json:"mention_details"`
}

// Analyze counts occurrences of the user's brand and each competitor name
// in responseContent. Persistence is the caller's job.
func Analyze(responseContent, userBrandName string, competitorNames []string) *Analysis {
	tracked := make([]string, 0, len(competitorNames)+1)
	if strings.TrimSpace(userBrandName) != "" {
		tracked = append(tracked, userBrandName)
	}
	for _, name := range competitorNames {
		if strings.TrimSpace(name) != "" {
			tracked = append(tracked, name)
		}
	}

	// Longer names scan first so that a name nested inside another one
	// cannot claim the same start offset. The sort is stable, keeping
	// the user brand ahead of equally long competitor names.
	order := make([]string, len(tracked))
	copy(order, tracked)
	sort.SliceStable(order, func(i, j int) bool { return len(order[i]) > len(order[j]) })

	claimed := map[int]bool{}
	found := map[string]*Mention{}
	for _, name := range order {
		if _, done := found[name]; done {
			continue
		}
		found[name] = scan(responseContent, name, claimed)
	}

	analysis := &Analysis{CompetitorMentions: map[string]int{}}

	if strings.TrimSpace(userBrandName) != "" {
		analysis.UserBrandMentions = found[userBrandName].MentionCount
		analysis.TotalMentions += found[userBrandName].MentionCount
		if found[userBrandName].MentionCount > 0 {
			analysis.MentionDetails = append(analysis.MentionDetails, *found[userBrandName])
		}
	}

	seen := map[string]bool{}
	for _, name := range competitorNames {
		if strings.TrimSpace(name) == "" || seen[name] {
			continue
		}
		seen[name] = true

		mention := found[name]
		if name == userBrandName {
			// Already credited to the user brand above.
			mention = &Mention{BrandName: name}
		}

		analysis.CompetitorMentions[name] = mention.MentionCount
		analysis.TotalMentions += mention.MentionCount
		if mention.MentionCount > 0 {
			analysis.MentionDetails = append(analysis.MentionDetails, *mention)
		}
	}

	return analysis
}

// scan finds every non-overlapping occurrence of name, left to right,
// skipping start offsets already claimed by a longer name.
func scan(text, name string, claimed map[int]bool) *Mention {
	mention := &Mention{BrandName: name}

	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if claimed[start] {
			continue
		}
		claimed[start] = true

		mention.MentionCount++
		mention.MentionPositions = append(mention.MentionPositions, start)
		mention.ContextSnippets = append(mention.ContextSnippets, snippet(text, start, end))
	}

	return mention
}

// snippet captures the match with up to SnippetRadius bytes of context on
// each side, collapsing runs of whitespace. Window edges are nudged to
// rune boundaries so a clipped window never splits a multibyte character.
func snippet(text string, start, end int) string {
	lo := start - SnippetRadius
	if lo < 0 {
		lo = 0
	}
	for lo < len(text) && !utf8.RuneStart(text[lo]) {
		lo++
	}

	hi := end + SnippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi--
	}

	return strings.Join(strings.Fields(text[lo:hi]), " ")
}
