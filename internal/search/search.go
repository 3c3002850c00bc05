// Package search filters board entries for the TUI filter bar.
package search

import (
	"sort"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/perch/internal/domain"
)

// Field names which part of an entry matched.
type Field string

const (
	FieldAll   Field = ""
	FieldTitle Field = "title"
	FieldOther Field = "other" // tags, body or url
)

// Result is a matching entry with match metadata for highlighting.
type Result struct {
	Entry          domain.Entry
	Field          Field
	MatchedIndexes []int // Byte positions in Entry.Title; only set for FieldTitle
	Score          int   // Higher is better for titles, lower is better for other
}

// Index implements sahilm/fuzzy.Source over entry titles. Titles are
// matched as stored; the matcher folds case itself, so matched indexes
// point into the displayed title.
type Index struct {
	entries []domain.Entry
}

// NewIndex wraps entries for fuzzy matching.
func NewIndex(entries []domain.Entry) *Index {
	return &Index{entries: entries}
}

// String returns the title at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.entries[i].Title }

// Len returns the number of entries (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.entries) }

// Filter returns entries matching query. Title matches come first in fuzzy
// score order, followed by entries whose tags, body or url contain the query,
// ranked by edit distance. An empty query returns every entry unchanged.
func Filter(query string, entries []domain.Entry) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		results := make([]Result, len(entries))
		for i, e := range entries {
			results[i] = Result{Entry: e, Field: FieldAll}
		}
		return results
	}
	if len(entries) == 0 {
		return nil
	}

	idx := NewIndex(entries)
	lowerQuery := strings.ToLower(query)

	matches := fuzzy.FindFrom(query, idx)
	seen := make(map[int]bool, len(matches))
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		seen[m.Index] = true
		results = append(results, Result{
			Entry:          entries[m.Index],
			Field:          FieldTitle,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}

	targets := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = secondaryText(e)
	}
	ranks := lfuzzy.RankFindNormalizedFold(lowerQuery, targets)
	sort.Stable(ranks)
	for _, r := range ranks {
		if seen[r.OriginalIndex] || targets[r.OriginalIndex] == "" {
			continue
		}
		seen[r.OriginalIndex] = true
		results = append(results, Result{
			Entry: entries[r.OriginalIndex],
			Field: FieldOther,
			Score: r.Distance,
		})
	}
	return results
}

// Entries strips match metadata.
func Entries(results []Result) []domain.Entry {
	entries := make([]domain.Entry, len(results))
	for i, r := range results {
		entries[i] = r.Entry
	}
	return entries
}

func secondaryText(e domain.Entry) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{e.TagLine(), e.Body, e.URL} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
