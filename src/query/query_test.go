package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfangunl/VerusDB/src/query"
)

func TestMatchLiteralEquality(t *testing.T) {
	doc := map[string]interface{}{"name": "Ada", "age": 30.0}
	assert.True(t, query.Match(doc, map[string]interface{}{"name": "Ada"}))
	assert.False(t, query.Match(doc, map[string]interface{}{"name": "Grace"}))
}

func TestMatchOperators(t *testing.T) {
	doc := map[string]interface{}{"age": 30.0}
	assert.True(t, query.Match(doc, map[string]interface{}{"age": map[string]interface{}{"$gte": 18.0}}))
	assert.False(t, query.Match(doc, map[string]interface{}{"age": map[string]interface{}{"$lt": 18.0}}))
}

func TestMatchMixedTypeOrderedComparisonNeverMatches(t *testing.T) {
	doc := map[string]interface{}{"age": "thirty"}
	assert.False(t, query.Match(doc, map[string]interface{}{"age": map[string]interface{}{"$gt": 10.0}}))
	assert.False(t, query.Match(doc, map[string]interface{}{"age": map[string]interface{}{"$lt": 10.0}}))
}

func TestMatchAndOr(t *testing.T) {
	doc := map[string]interface{}{"age": 30.0, "name": "Ada"}
	q := map[string]interface{}{
		"$and": []interface{}{
			map[string]interface{}{"age": map[string]interface{}{"$gte": 18.0}},
			map[string]interface{}{"name": "Ada"},
		},
	}
	assert.True(t, query.Match(doc, q))

	orQ := map[string]interface{}{
		"$or": []interface{}{
			map[string]interface{}{"name": "Grace"},
			map[string]interface{}{"age": 30.0},
		},
	}
	assert.True(t, query.Match(doc, orQ))
}

func TestMatchRegexWithOptions(t *testing.T) {
	doc := map[string]interface{}{"name": "Ada Lovelace"}
	q := map[string]interface{}{"name": map[string]interface{}{"$regex": "^ada", "$options": "i"}}
	assert.True(t, query.Match(doc, q))
}

func TestMatchInNin(t *testing.T) {
	doc := map[string]interface{}{"status": "active"}
	assert.True(t, query.Match(doc, map[string]interface{}{"status": map[string]interface{}{"$in": []interface{}{"active", "pending"}}}))
	assert.True(t, query.Match(doc, map[string]interface{}{"status": map[string]interface{}{"$nin": []interface{}{"closed"}}}))
}

func TestGetSetUnsetPath(t *testing.T) {
	doc := map[string]interface{}{}
	query.SetPath(doc, "a.b.c", 1.0)

	v, ok := query.GetPath(doc, "a.b.c")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	query.UnsetPath(doc, "a.b.c")
	_, ok = query.GetPath(doc, "a.b.c")
	assert.False(t, ok)
}

func TestSortByMultipleKeys(t *testing.T) {
	docs := []map[string]interface{}{
		{"age": 30.0, "name": "Ada"},
		{"age": 20.0, "name": "Grace"},
		{"age": 20.0, "name": "Alan"},
	}
	query.Sort(docs, []query.SortKey{{Path: "age", Direction: 1}, {Path: "name", Direction: 1}})

	assert.Equal(t, "Alan", docs[0]["name"])
	assert.Equal(t, "Grace", docs[1]["name"])
	assert.Equal(t, "Ada", docs[2]["name"])
}

func TestApplyUpdateOperators(t *testing.T) {
	doc := map[string]interface{}{"count": 1.0, "tags": []interface{}{"a", "b"}}

	updated, err := query.ApplyUpdate(doc, map[string]interface{}{
		"$inc":  map[string]interface{}{"count": 4.0},
		"$push": map[string]interface{}{"tags": "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated["count"])
	assert.Equal(t, []interface{}{"a", "b", "c"}, updated["tags"])

	// doc itself must be untouched.
	assert.Equal(t, 1.0, doc["count"])
}

func TestMatchEqualityOnObjectAndArrayFieldsDoesNotPanic(t *testing.T) {
	doc := map[string]interface{}{
		"addr": map[string]interface{}{"city": "x"},
		"tags": []interface{}{"a", "b"},
	}

	assert.NotPanics(t, func() {
		assert.True(t, query.Match(doc, map[string]interface{}{"addr": map[string]interface{}{"city": "x"}}))
		assert.False(t, query.Match(doc, map[string]interface{}{"addr": map[string]interface{}{"city": "y"}}))
		assert.True(t, query.Match(doc, map[string]interface{}{"tags": []interface{}{"a", "b"}}))
	})

	assert.NotPanics(t, func() {
		assert.True(t, query.Match(doc, map[string]interface{}{
			"addr": map[string]interface{}{"$ne": map[string]interface{}{"city": "y"}},
		}))
		assert.True(t, query.Match(doc, map[string]interface{}{
			"addr": map[string]interface{}{"$in": []interface{}{map[string]interface{}{"city": "x"}}},
		}))
	})
}

func TestApplyUpdatePullOfObjectElementDoesNotPanic(t *testing.T) {
	doc := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"id": 1.0},
			map[string]interface{}{"id": 2.0},
		},
	}

	var updated map[string]interface{}
	var err error
	assert.NotPanics(t, func() {
		updated, err = query.ApplyUpdate(doc, map[string]interface{}{
			"$pull": map[string]interface{}{"items": map[string]interface{}{"id": 1.0}},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"id": 2.0}}, updated["items"])
}

func TestApplyUpdatePull(t *testing.T) {
	doc := map[string]interface{}{"tags": []interface{}{"a", "b", "c"}}
	updated, err := query.ApplyUpdate(doc, map[string]interface{}{
		"$pull": map[string]interface{}{"tags": "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "c"}, updated["tags"])
}

func TestApplyProjectionKeepsReservedFields(t *testing.T) {
	doc := map[string]interface{}{"_id": "1", "name": "Ada", "age": 30.0}
	proj := query.ApplyProjection(doc, []string{"name"})

	assert.Equal(t, "1", proj["_id"])
	assert.Equal(t, "Ada", proj["name"])
	_, hasAge := proj["age"]
	assert.False(t, hasAge)
}

func TestPaginate(t *testing.T) {
	docs := []map[string]interface{}{{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4}}
	got := query.Paginate(docs, 1, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0]["n"])
	assert.Equal(t, 3, got[1]["n"])
}

func TestCloneDocumentIsDeep(t *testing.T) {
	original := map[string]interface{}{"nested": map[string]interface{}{"x": 1.0}}
	clone := query.CloneDocument(original)
	clone["nested"].(map[string]interface{})["x"] = 2.0

	assert.Equal(t, 1.0, original["nested"].(map[string]interface{})["x"])
}
