package differ_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

func TestComparePaths(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"/a", "/a", 0},
		{"/a", "/b", -1},
		{"/a/b", "/a.txt", -1},
		{"/a.txt", "/a/b", 1},
		{"/app.jar", "/app.jar/X.class", -1},
		{"/", "/a", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, differ.ComparePaths(tt.a, tt.b))
		})
	}
}

func TestSortRecords(t *testing.T) {
	records := []differ.Record{
		{Path: "/b.txt"},
		{Path: "/a.txt"},
		{Path: "/a/z"},
		{Path: "/a"},
	}
	differ.SortRecords(records)

	var paths []string
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/a", "/a/z", "/a.txt", "/b.txt"}, paths)
}

func TestSummary(t *testing.T) {
	counts := differ.Summary([]differ.Record{
		{Kind: types.KindSizeDiff},
		{Kind: types.KindSizeDiff},
		{Kind: types.KindOnlyIn2},
	})
	assert.Equal(t, 2, counts[types.KindSizeDiff])
	assert.Equal(t, 1, counts[types.KindOnlyIn2])
	assert.Zero(t, counts[types.KindError])
}

func TestRecordJSONFieldNames(t *testing.T) {
	rec := differ.Record{
		Path:  "/app.jar",
		Kind:  types.KindContentDiff,
		Item1: &differ.Item{Name: "app.jar", Size: 10, IsArchive: true},
		Nested: []differ.Record{
			{Path: "/app.jar/X.class", Kind: types.KindOnlyIn1, Item1: &differ.Item{Name: "X.class", InArchive: true}},
		},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "/app.jar", raw["path"])
	assert.Equal(t, "content_diff", raw["type"])
	assert.Contains(t, raw, "item2")
	assert.Nil(t, raw["item2"])
	assert.NotContains(t, raw, "error")

	item1 := raw["item1"].(map[string]any)
	assert.Equal(t, true, item1["is_archive"])
	assert.Contains(t, item1, "mtime")

	nested := raw["jar_diff"].([]any)
	require.Len(t, nested, 1)
	assert.Equal(t, "only_in_1", nested[0].(map[string]any)["type"])

	assert.True(t, rec.IsArchive())
}
