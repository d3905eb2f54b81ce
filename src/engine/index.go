package engine

import (
	"fmt"

	"github.com/irfangunl/VerusDB/src/verrors"
)

// CreateIndex builds a secondary index on collection.field from the
// collection's current documents and registers it. Fails with IndexError
// if the index already exists, or if opts.Unique is set and a duplicate
// stringified value is found while building it.
func (db *Database) CreateIndex(collection, field string, opts IndexOptions) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	cs, err := db.getCollectionLocked(collection)
	if err != nil {
		return err
	}

	key := indexKey(collection, field)
	if _, exists := db.indexes[key]; exists {
		return &verrors.IndexError{Collection: collection, Field: field, Reason: "index already exists"}
	}

	idx := &indexState{
		collection: collection,
		field:      field,
		unique:     opts.Unique,
		sparse:     opts.Sparse,
		entries:    map[string]map[string]struct{}{},
	}

	plainDocs, err := db.decryptedDocuments(cs)
	if err != nil {
		return err
	}

	for id, doc := range plainDocs {
		value, present := doc[field]
		if !present && idx.sparse {
			continue
		}
		valueKey := stringifyIndexValue(value, present)
		if idx.unique {
			if existing, ok := idx.entries[valueKey]; ok && len(existing) > 0 {
				return &verrors.IndexError{Collection: collection, Field: field, Reason: fmt.Sprintf("duplicate value at document %q violates unique index", id)}
			}
		}
		addIndexEntry(idx, valueKey, id)
	}

	db.indexes[key] = idx
	db.recordOperation("createIndex", fmt.Sprintf("collection=%s field=%s unique=%v sparse=%v", collection, field, idx.unique, idx.sparse))
	if err := db.saveLocked(); err != nil {
		delete(db.indexes, key)
		return err
	}

	db.logger.Infow("created index", "collection", collection, "field", field, "unique", idx.unique, "sparse", idx.sparse)
	return nil
}

// DropIndex removes the named index. Fails with IndexError if it does not
// exist.
func (db *Database) DropIndex(collection, field string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := indexKey(collection, field)
	removed, exists := db.indexes[key]
	if !exists {
		return &verrors.IndexError{Collection: collection, Field: field, Reason: "index does not exist"}
	}

	delete(db.indexes, key)
	db.recordOperation("dropIndex", fmt.Sprintf("collection=%s field=%s", collection, field))
	if err := db.saveLocked(); err != nil {
		db.indexes[key] = removed
		return err
	}

	db.logger.Infow("dropped index", "collection", collection, "field", field)
	return nil
}

func addIndexEntry(idx *indexState, valueKey, docID string) {
	set, ok := idx.entries[valueKey]
	if !ok {
		set = map[string]struct{}{}
		idx.entries[valueKey] = set
	}
	set[docID] = struct{}{}
}

func removeIndexEntry(idx *indexState, valueKey, docID string) {
	set, ok := idx.entries[valueKey]
	if !ok {
		return
	}
	delete(set, docID)
	if len(set) == 0 {
		delete(idx.entries, valueKey)
	}
}

// indexesFor returns every index registered against collection.
func (db *Database) indexesFor(collection string) []*indexState {
	var out []*indexState
	for _, idx := range db.indexes {
		if idx.collection == collection {
			out = append(out, idx)
		}
	}
	return out
}

// checkUniqueConstraints verifies doc does not collide with any existing
// document on a unique-flagged index, ignoring excludeID (the document's
// own prior state on an update).
func checkUniqueConstraints(indexes []*indexState, doc map[string]interface{}, excludeID string) error {
	for _, idx := range indexes {
		if !idx.unique {
			continue
		}
		value, present := doc[idx.field]
		if !present && idx.sparse {
			continue
		}
		valueKey := stringifyIndexValue(value, present)
		ids, ok := idx.entries[valueKey]
		if !ok {
			continue
		}
		for id := range ids {
			if id != excludeID {
				return verrors.NewUniqueConstraintError(idx.collection, idx.field, value)
			}
		}
	}
	return nil
}

// indexInsert adds docID's entry to every index on collection.
func indexInsert(indexes []*indexState, doc map[string]interface{}, docID string) {
	for _, idx := range indexes {
		value, present := doc[idx.field]
		if !present && idx.sparse {
			continue
		}
		addIndexEntry(idx, stringifyIndexValue(value, present), docID)
	}
}

// indexRemove removes docID's entry from every index on collection.
func indexRemove(indexes []*indexState, doc map[string]interface{}, docID string) {
	for _, idx := range indexes {
		value, present := doc[idx.field]
		if !present && idx.sparse {
			continue
		}
		removeIndexEntry(idx, stringifyIndexValue(value, present), docID)
	}
}
