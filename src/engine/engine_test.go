package engine_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfangunl/VerusDB/src/engine"
	"github.com/irfangunl/VerusDB/src/query"
	"github.com/irfangunl/VerusDB/src/schema"
	"github.com/irfangunl/VerusDB/src/settings"
)

func openTestDB(t *testing.T) *engine.Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.vdb")
	db, err := engine.Open(path, "test passphrase", engine.WithOptions(settings.Options{
		PBKDF2Iterations: 1000,
	}))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func usersSchema() schema.Schema {
	return schema.Schema{
		"email": schema.FieldDefinition{Type: schema.TypeString, Required: true, Unique: true},
		"age":   schema.FieldDefinition{Type: schema.TypeNumber},
		"ssn":   schema.FieldDefinition{Type: schema.TypeString, Encrypted: true},
	}
}

func TestCreateCollectionAndInsertFind(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))

	inserted, err := db.Insert("users", map[string]interface{}{
		"email": "ada@example.com",
		"age":   30.0,
		"ssn":   "123-45-6789",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", inserted["email"])
	assert.Equal(t, "123-45-6789", inserted["ssn"])

	found, ok, err := db.FindOne("users", map[string]interface{}{"email": "ada@example.com"}, query.FindOptions{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "123-45-6789", found["ssn"])
}

func TestUniqueConstraintRejectsDuplicateInsert(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))

	_, err := db.Insert("users", map[string]interface{}{"email": "grace@example.com"})
	require.NoError(t, err)

	_, err = db.Insert("users", map[string]interface{}{"email": "grace@example.com"})
	assert.Error(t, err)
}

func TestUniqueConstraintAllowsUpdatingOwnValue(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))

	_, err := db.Insert("users", map[string]interface{}{"email": "alan@example.com", "age": 25.0})
	require.NoError(t, err)

	result, err := db.Update("users", map[string]interface{}{"email": "alan@example.com"}, map[string]interface{}{
		"$set": map[string]interface{}{"email": "alan@example.com", "age": 26.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Equal(t, 1, result.ModifiedCount)

	found, ok, err := db.FindOne("users", map[string]interface{}{"email": "alan@example.com"}, query.FindOptions{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 26.0, found["age"])
}

func TestUpdateMatchedCountExceedsModifiedCountWhenValueUnchanged(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))

	_, err := db.Insert("users", map[string]interface{}{"email": "grace@example.com", "age": 40.0})
	require.NoError(t, err)

	result, err := db.Update("users", map[string]interface{}{"email": "grace@example.com"}, map[string]interface{}{
		"$set": map[string]interface{}{"age": 40.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Equal(t, 0, result.ModifiedCount)
}

func TestDeleteRemovesDocumentAndIndexEntry(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))

	_, err := db.Insert("users", map[string]interface{}{"email": "turing@example.com"})
	require.NoError(t, err)

	n, err := db.Delete("users", map[string]interface{}{"email": "turing@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	docs, err := db.Find("users", map[string]interface{}{}, query.FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Re-inserting the same unique value must succeed now that the index
	// entry was cleaned up with the document.
	_, err = db.Insert("users", map[string]interface{}{"email": "turing@example.com"})
	assert.NoError(t, err)
}

func TestCreateIndexBuildsFromExistingDocumentsAndRejectsDuplicates(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: schema.Schema{
		"nickname": schema.FieldDefinition{Type: schema.TypeString},
	}}))

	_, err := db.Insert("users", map[string]interface{}{"nickname": "dup"})
	require.NoError(t, err)
	_, err = db.Insert("users", map[string]interface{}{"nickname": "dup"})
	require.NoError(t, err)

	err = db.CreateIndex("users", "nickname", engine.IndexOptions{Unique: true})
	assert.Error(t, err)
}

func TestDropCollectionRemovesItsIndexes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))
	require.NoError(t, db.DropCollection("users"))

	_, err := db.Insert("users", map[string]interface{}{"email": "x@example.com"})
	assert.Error(t, err)

	// Re-creating the collection with a schema that requests no index must
	// leave it with no index at all: the unique email index of the dropped
	// collection must be gone.
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: schema.Schema{
		"email": schema.FieldDefinition{Type: schema.TypeString},
	}}))
	stats, err := db.GetStats("users")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.IndexCount)
}

func TestWrongPassphraseFailsToOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vdb")
	opts := engine.WithOptions(settings.Options{PBKDF2Iterations: 1000})

	db, err := engine.Open(path, "right passphrase", opts)
	require.NoError(t, err)
	db.Close()

	_, err = engine.Open(path, "wrong passphrase", opts)
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))
	_, err := db.Insert("users", map[string]interface{}{"email": "lovelace@example.com", "ssn": "000-00-0000"})
	require.NoError(t, err)

	tree, err := db.Export()
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Version)
	require.Contains(t, tree.Collections, "users")

	db2 := openTestDB(t)
	require.NoError(t, db2.Import(tree))

	found, ok, err := db2.FindOne("users", map[string]interface{}{"email": "lovelace@example.com"}, query.FindOptions{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "000-00-0000", found["ssn"])
}

func TestDateFieldQueryAndOrderingSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vdb")
	opts := engine.WithOptions(settings.Options{PBKDF2Iterations: 1000})

	db, err := engine.Open(path, "passphrase", opts)
	require.NoError(t, err)
	require.NoError(t, db.CreateCollection("events", engine.CollectionOptions{Schema: schema.Schema{
		"occursAt": schema.FieldDefinition{Type: schema.TypeDate},
		"name":     schema.FieldDefinition{Type: schema.TypeString},
	}}))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		_, err := db.Insert("events", map[string]interface{}{
			"name":     name,
			"occursAt": base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}
	db.Close()

	db2, err := engine.Open(path, "passphrase", opts)
	require.NoError(t, err)
	t.Cleanup(db2.Close)

	docs, err := db2.Find("events", map[string]interface{}{
		"occursAt": map[string]interface{}{"$gt": base},
	}, query.FindOptions{Sort: []query.SortKey{{Path: "occursAt", Direction: 1}}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "second", docs[0]["name"])
	assert.Equal(t, "third", docs[1]["name"])
}

func TestFindSortSkipLimitProjection(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateCollection("users", engine.CollectionOptions{Schema: usersSchema()}))

	for _, e := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		_, err := db.Insert("users", map[string]interface{}{"email": e})
		require.NoError(t, err)
	}

	docs, err := db.Find("users", map[string]interface{}{}, query.FindOptions{
		Sort:       []query.SortKey{{Path: "email", Direction: 1}},
		Skip:       1,
		Limit:      1,
		Projection: []string{"email"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b@example.com", docs[0]["email"])
	_, hasAge := docs[0]["age"]
	assert.False(t, hasAge)
}
