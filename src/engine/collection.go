package engine

import (
	"fmt"
	"strings"

	"github.com/irfangunl/VerusDB/src/schema"
	"github.com/irfangunl/VerusDB/src/verrors"
)

// collectionState is a collection's in-memory state. documents holds the
// storage form: fields flagged schema.FieldDefinition.Encrypted are stored
// as the base64 ciphertext string EncryptField produces, not the plaintext
// value.
type collectionState struct {
	name      string
	schema    schema.Schema
	documents map[string]map[string]interface{}
}

// indexState is one secondary index's in-memory state: a mapping from
// stringified field value to the set of document ids holding that value.
type indexState struct {
	collection string
	field      string
	unique     bool
	sparse     bool
	entries    map[string]map[string]struct{}
}

// IndexOptions configures a secondary index at creation time.
type IndexOptions struct {
	Unique bool
	Sparse bool
}

// CollectionOptions configures a collection at creation time: its schema
// and any indexes to build eagerly from the (empty) document set.
type CollectionOptions struct {
	Schema  schema.Schema
	Indexes map[string]IndexOptions
}

func indexKey(collection, field string) string {
	return collection + "." + field
}

// CreateCollection validates name and schema, registers the collection,
// builds any requested indexes, and persists the result.
func (db *Database) CreateCollection(name string, opts CollectionOptions) error {
	if strings.TrimSpace(name) == "" {
		return &verrors.CollectionError{Collection: name, Reason: "collection name must not be empty"}
	}
	if err := schema.ValidateSchema(opts.Schema); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.collections[name]; exists {
		return &verrors.CollectionError{Collection: name, Reason: "collection already exists"}
	}

	cs := &collectionState{
		name:      name,
		schema:    opts.Schema,
		documents: map[string]map[string]interface{}{},
	}

	// Fields flagged `index: true` in the schema request an index
	// implicitly, and a `unique: true` field requires one outright since
	// uniqueness is enforced by consulting the field's index; explicit
	// entries in opts.Indexes take precedence over (and may be more
	// specific than) either flag.
	wanted := map[string]IndexOptions{}
	for field, def := range opts.Schema {
		if def.Index {
			wanted[field] = IndexOptions{}
		}
		if def.Unique {
			io := wanted[field]
			io.Unique = true
			wanted[field] = io
		}
	}
	for field, io := range opts.Indexes {
		wanted[field] = io
	}

	built := make([]*indexState, 0, len(wanted))
	for field, io := range wanted {
		built = append(built, &indexState{
			collection: name,
			field:      field,
			unique:     io.Unique,
			sparse:     io.Sparse,
			entries:    map[string]map[string]struct{}{},
		})
	}

	db.collections[name] = cs
	for _, idx := range built {
		db.indexes[indexKey(name, idx.field)] = idx
	}

	db.recordOperation("createCollection", fmt.Sprintf("collection=%s indexes=%d", name, len(built)))
	if err := db.saveLocked(); err != nil {
		delete(db.collections, name)
		for _, idx := range built {
			delete(db.indexes, indexKey(name, idx.field))
		}
		return err
	}

	db.logger.Infow("created collection", "collection", name, "indexes", len(built))
	return nil
}

// DropCollection removes the collection and every index whose key prefix
// matches it.
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.getCollectionLocked(name); err != nil {
		return err
	}

	removedCollection := db.collections[name]
	removedIndexes := map[string]*indexState{}
	prefix := name + "."
	for key, idx := range db.indexes {
		if strings.HasPrefix(key, prefix) {
			removedIndexes[key] = idx
		}
	}

	delete(db.collections, name)
	for key := range removedIndexes {
		delete(db.indexes, key)
	}

	db.recordOperation("dropCollection", fmt.Sprintf("collection=%s", name))
	if err := db.saveLocked(); err != nil {
		db.collections[name] = removedCollection
		for key, idx := range removedIndexes {
			db.indexes[key] = idx
		}
		return err
	}

	db.logger.Infow("dropped collection", "collection", name)
	return nil
}

// CollectionStats summarizes a collection for GetStats.
type CollectionStats struct {
	Name          string
	DocumentCount int
	IndexCount    int
	Schema        schema.Schema
}

// GetStats reports document count, index count, and a schema snapshot for
// the named collection.
func (db *Database) GetStats(collection string) (CollectionStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	cs, err := db.getCollectionLocked(collection)
	if err != nil {
		return CollectionStats{}, err
	}

	indexCount := 0
	prefix := collection + "."
	for key := range db.indexes {
		if strings.HasPrefix(key, prefix) {
			indexCount++
		}
	}

	schemaCopy := make(schema.Schema, len(cs.schema))
	for k, v := range cs.schema {
		schemaCopy[k] = v
	}

	return CollectionStats{
		Name:          collection,
		DocumentCount: len(cs.documents),
		IndexCount:    indexCount,
		Schema:        schemaCopy,
	}, nil
}

// ListCollections returns the names of every collection, in no particular
// order.
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	return names
}
