package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/perch/internal/domain"
)

func sample() []domain.Entry {
	return []domain.Entry{
		{ID: "1", Kind: domain.KindTodo, Title: "Water the plants", Tags: []string{"home"}},
		{ID: "2", Kind: domain.KindLink, Title: "Go release notes", URL: "https://go.dev/doc/devel/release"},
		{ID: "3", Kind: domain.KindNote, Title: "Groceries", Body: "milk, eggs, plantain chips"},
		{ID: "4", Kind: domain.KindNote, Title: "Standup", Tags: []string{"work", "daily"}},
	}
}

func resultIDs(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Entry.ID
	}
	return out
}

func TestFilterEmptyQueryReturnsAll(t *testing.T) {
	results := Filter("  ", sample())
	assert.Equal(t, []string{"1", "2", "3", "4"}, resultIDs(results))
	for _, r := range results {
		assert.Equal(t, FieldAll, r.Field)
		assert.Nil(t, r.MatchedIndexes)
	}
}

func TestFilterNoEntries(t *testing.T) {
	assert.Empty(t, Filter("x", nil))
}

func TestFilterTitleMatchFirst(t *testing.T) {
	results := Filter("plant", sample())
	require.NotEmpty(t, results)

	assert.Equal(t, "1", results[0].Entry.ID)
	assert.Equal(t, FieldTitle, results[0].Field)
	assert.Equal(t, []int{10, 11, 12, 13, 14}, results[0].MatchedIndexes)

	// "plantain" in the grocery body matches as a secondary hit
	assert.Contains(t, resultIDs(results), "3")
	for _, r := range results {
		if r.Entry.ID == "3" {
			assert.Equal(t, FieldOther, r.Field)
		}
	}
}

func TestFilterCaseInsensitive(t *testing.T) {
	results := Filter("STANDUP", sample())
	require.NotEmpty(t, results)
	assert.Equal(t, "4", results[0].Entry.ID)
}

func TestFilterMatchesTags(t *testing.T) {
	results := Filter("daily", sample())
	require.Len(t, results, 1)
	assert.Equal(t, "4", results[0].Entry.ID)
	assert.Equal(t, FieldOther, results[0].Field)
}

func TestFilterNoDuplicates(t *testing.T) {
	entries := []domain.Entry{{ID: "x", Title: "home", Tags: []string{"home"}}}
	results := Filter("home", entries)
	assert.Equal(t, []string{"x"}, resultIDs(results))
}

func TestFilterNoMatch(t *testing.T) {
	assert.Empty(t, Filter("zzzz", sample()))
}

func TestIndexSource(t *testing.T) {
	idx := NewIndex(sample())
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, "Go release notes", idx.String(1))
}

func TestEntries(t *testing.T) {
	results := Filter("", sample()[:2])
	assert.Equal(t, sample()[:2], Entries(results))
}

func TestFilterMatchedIndexesPointIntoTitle(t *testing.T) {
	// İ lowercases to a different byte length
	entries := []domain.Entry{{ID: "1", Title: "İİstanbul"}}

	results := Filter("STAN", entries)
	require.Len(t, results, 1)

	title := results[0].Entry.Title
	var matched []byte
	for _, i := range results[0].MatchedIndexes {
		matched = append(matched, title[i])
	}
	assert.Equal(t, "stan", string(matched))
}
