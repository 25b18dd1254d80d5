package ranker

import (
	"sort"

	"newsletter-agent/model"
)

// DefaultTop is how many summaries a newsletter features and its abstract
// is written from.
const DefaultTop = 8

// Rank returns a copy of summaries sorted by descending interest score.
// The sort is stable: equal scores keep their original relative order.
func Rank(summaries []model.PageSummary) []model.PageSummary {
	ranked := make([]model.PageSummary, len(summaries))
	copy(ranked, summaries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].InterestScore > ranked[j].InterestScore
	})

	return ranked
}

// Split divides ranked summaries into the first min(n, len) featured entries
// and the overflow remainder, preserving order. A negative n features nothing.
func Split(ranked []model.PageSummary, n int) (featured, overflow []model.PageSummary) {
	n = max(0, min(n, len(ranked)))
	return ranked[:n:n], ranked[n:]
}

// Top returns the n highest-scored summaries.
func Top(summaries []model.PageSummary, n int) []model.PageSummary {
	featured, _ := Split(Rank(summaries), n)
	return featured
}

// Links returns the link of each summary, in order.
func Links(summaries []model.PageSummary) []string {
	links := make([]string, len(summaries))
	for i, s := range summaries {
		links[i] = s.Link
	}
	return links
}
