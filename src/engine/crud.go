package engine

import (
	"reflect"
	"strconv"
	"time"

	"github.com/irfangunl/VerusDB/src/query"
	"github.com/irfangunl/VerusDB/src/schema"
)

// UpdateResult reports how many documents an Update call matched versus
// how many of those actually had their stored content changed, per the
// spec's §4.4/§6 result shape.
type UpdateResult struct {
	MatchedCount  int
	ModifiedCount int
}

// Insert validates input against the collection's schema, assigns _id /
// createdAt / updatedAt as needed, checks unique constraints, and persists
// the result. It returns the inserted document's plaintext form.
func (db *Database) Insert(collection string, input map[string]interface{}) (map[string]interface{}, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cs, err := db.getCollectionLocked(collection)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc, err := schema.ValidateDocument(input, cs.schema, now, "")
	if err != nil {
		return nil, err
	}

	id, _ := doc[schema.FieldID].(string)
	indexes := db.indexesFor(collection)
	if err := checkUniqueConstraints(indexes, doc, ""); err != nil {
		return nil, err
	}

	stored, err := toStorageForm(doc, cs.schema, db.key)
	if err != nil {
		return nil, err
	}

	cs.documents[id] = stored
	indexInsert(indexes, doc, id)

	db.recordOperation("insert", "collection="+collection+" id="+id)
	if err := db.saveLocked(); err != nil {
		delete(cs.documents, id)
		indexRemove(indexes, doc, id)
		return nil, err
	}

	db.logger.Infow("inserted document", "collection", collection, "id", id)
	return query.CloneDocument(doc), nil
}

// Find returns every document in collection matching q, after applying
// sort, skip, limit, and projection per opts.
func (db *Database) Find(collection string, q map[string]interface{}, opts query.FindOptions) ([]map[string]interface{}, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	cs, err := db.getCollectionLocked(collection)
	if err != nil {
		return nil, err
	}

	plainDocs, err := db.decryptedDocuments(cs)
	if err != nil {
		return nil, err
	}

	matched := make([]map[string]interface{}, 0, len(plainDocs))
	for _, doc := range sortedDocumentSlice(plainDocs) {
		if q == nil || query.Match(doc, q) {
			matched = append(matched, doc)
		}
	}

	query.Sort(matched, opts.Sort)
	matched = query.Paginate(matched, opts.Skip, opts.Limit)

	out := make([]map[string]interface{}, len(matched))
	for i, doc := range matched {
		out[i] = query.ApplyProjection(doc, opts.Projection)
	}
	return out, nil
}

// FindOne returns the first document matching q (after sort, if any), or
// ok=false if none matched.
func (db *Database) FindOne(collection string, q map[string]interface{}, opts query.FindOptions) (doc map[string]interface{}, ok bool, err error) {
	opts.Limit = 1
	docs, err := db.Find(collection, q, opts)
	if err != nil {
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}

// pendingChange tracks one document's update so a save failure can roll
// every applied mutation back in one pass.
type pendingChange struct {
	id         string
	before     map[string]interface{} // plaintext, pre-update
	after      map[string]interface{} // plaintext, post-update
	prevStored map[string]interface{} // storage form before this update
	modified   bool                   // content changed beyond the updatedAt stamp
}

// Update applies update's operators to every document in collection
// matching q, persisting the whole-document replacements. It returns the
// count of documents matched alongside the count of those whose content
// actually changed.
func (db *Database) Update(collection string, q map[string]interface{}, update map[string]interface{}) (UpdateResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cs, err := db.getCollectionLocked(collection)
	if err != nil {
		return UpdateResult{}, err
	}

	plainDocs, err := db.decryptedDocuments(cs)
	if err != nil {
		return UpdateResult{}, err
	}

	indexes := db.indexesFor(collection)
	now := time.Now()

	var changes []*pendingChange
	for id, doc := range plainDocs {
		if !query.Match(doc, q) {
			continue
		}
		updated, err := query.ApplyUpdate(doc, update)
		if err != nil {
			return UpdateResult{}, err
		}
		validated, err := schema.ValidateDocument(updated, cs.schema, now, id)
		if err != nil {
			return UpdateResult{}, err
		}
		if err := checkUniqueConstraints(indexes, validated, id); err != nil {
			return UpdateResult{}, err
		}
		changes = append(changes, &pendingChange{
			id:       id,
			before:   doc,
			after:    validated,
			modified: documentContentChanged(doc, validated),
		})
	}

	if len(changes) == 0 {
		return UpdateResult{}, nil
	}

	applied := make([]*pendingChange, 0, len(changes))
	for _, c := range changes {
		stored, err := toStorageForm(c.after, cs.schema, db.key)
		if err != nil {
			rollbackChanges(cs, indexes, applied)
			return UpdateResult{}, err
		}
		c.prevStored = cs.documents[c.id]
		cs.documents[c.id] = stored
		indexRemove(indexes, c.before, c.id)
		indexInsert(indexes, c.after, c.id)
		applied = append(applied, c)
	}

	result := UpdateResult{MatchedCount: len(changes)}
	for _, c := range changes {
		if c.modified {
			result.ModifiedCount++
		}
	}

	db.recordOperation("update", "collection="+collection+" matched="+strconv.Itoa(result.MatchedCount)+" modified="+strconv.Itoa(result.ModifiedCount))
	if err := db.saveLocked(); err != nil {
		rollbackChanges(cs, indexes, applied)
		return UpdateResult{}, err
	}

	db.logger.Infow("updated documents", "collection", collection, "matched", result.MatchedCount, "modified", result.ModifiedCount)
	return result, nil
}

// documentContentChanged reports whether after differs from before, ignoring
// updatedAt (which Update always refreshes regardless of whether any
// operator actually changed the document).
func documentContentChanged(before, after map[string]interface{}) bool {
	b := query.CloneDocument(before)
	a := query.CloneDocument(after)
	delete(b, schema.FieldUpdatedAt)
	delete(a, schema.FieldUpdatedAt)
	return !reflect.DeepEqual(b, a)
}

// rollbackChanges undoes a set of already-applied pendingChanges, in
// reverse order, restoring both storage maps and index entries.
func rollbackChanges(cs *collectionState, indexes []*indexState, applied []*pendingChange) {
	for i := len(applied) - 1; i >= 0; i-- {
		c := applied[i]
		cs.documents[c.id] = c.prevStored
		indexRemove(indexes, c.after, c.id)
		indexInsert(indexes, c.before, c.id)
	}
}

// Delete removes every document in collection matching q, returning the
// count of documents removed.
func (db *Database) Delete(collection string, q map[string]interface{}) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cs, err := db.getCollectionLocked(collection)
	if err != nil {
		return 0, err
	}

	plainDocs, err := db.decryptedDocuments(cs)
	if err != nil {
		return 0, err
	}

	indexes := db.indexesFor(collection)

	type removedEntry struct {
		id     string
		doc    map[string]interface{}
		stored map[string]interface{}
	}
	var removed []removedEntry

	for id, doc := range plainDocs {
		if !query.Match(doc, q) {
			continue
		}
		removed = append(removed, removedEntry{id: id, doc: doc, stored: cs.documents[id]})
	}

	if len(removed) == 0 {
		return 0, nil
	}

	for _, r := range removed {
		delete(cs.documents, r.id)
		indexRemove(indexes, r.doc, r.id)
	}

	db.recordOperation("delete", "collection="+collection+" matched="+strconv.Itoa(len(removed)))
	if err := db.saveLocked(); err != nil {
		for _, r := range removed {
			cs.documents[r.id] = r.stored
			indexInsert(indexes, r.doc, r.id)
		}
		return 0, err
	}

	db.logger.Infow("deleted documents", "collection", collection, "matched", len(removed))
	return len(removed), nil
}
