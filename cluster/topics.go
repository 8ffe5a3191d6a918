package cluster

import (
	"sort"
	"strings"
	"unicode"

	"github.com/inchronicle/go-stories/pkg/types"
)

// stopwords are title words too common to signal a shared topic.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"about": {}, "over": {}, "this": {}, "that": {}, "new": {}, "update": {},
	"updated": {}, "add": {}, "added": {}, "fix": {}, "fixed": {}, "feat": {},
	"chore": {}, "merge": {}, "draft": {}, "wip": {}, "review": {}, "meeting": {},
	"notes": {}, "discussion": {}, "sync": {}, "call": {},
}

// topicTokens extracts the normalized topic words from a title. Tokens shorter
// than three runes and stopwords are dropped.
func topicTokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if len([]rune(word)) < 3 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}

// jaccard returns |a ∩ b| / |a ∪ b|, zero when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Topics returns the n most frequent topic tokens across the activity titles,
// most frequent first, ties broken alphabetically. The timeline layer uses it
// to tag draft stories with the same vocabulary the engine clusters by.
func Topics(activities []types.ToolActivity, n int) []string {
	return dominantTokens(activities, n)
}

// dominantTokens returns the n most frequent topic tokens across the member
// titles, most frequent first, ties broken alphabetically.
func dominantTokens(activities []types.ToolActivity, n int) []string {
	counts := make(map[string]int)
	for _, activity := range activities {
		for token := range topicTokens(activity.Title) {
			counts[token]++
		}
	}
	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens
}

func capitalize(token string) string {
	runes := []rune(token)
	if len(runes) == 0 {
		return token
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func trimTitle(title string) string {
	title = strings.TrimSpace(title)
	const max = 60
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return strings.TrimSpace(string(runes[:max]))
}
