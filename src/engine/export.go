package engine

import (
	"fmt"
	"time"

	"github.com/irfangunl/VerusDB/src/codec"
	"github.com/irfangunl/VerusDB/src/verrors"
)

// ExportedCollection is one collection's portable form: its schema plus
// every document, fully decrypted. Documents is a JSON array, per the
// spec's canonical export tree shape — a document's _id lives inside each
// element, not in the surrounding structure.
type ExportedCollection struct {
	Schema    map[string]interface{}   `json:"schema"`
	Documents []map[string]interface{} `json:"documents"`
}

// ExportTree is the canonical portable backup/import shape returned by
// Export and accepted by Import.
type ExportTree struct {
	Version     int                           `json:"version"`
	Created     time.Time                     `json:"created"`
	Collections map[string]ExportedCollection `json:"collections"`
}

// Export renders the whole database as a portable tree with every
// encrypted field decrypted back to plaintext.
func (db *Database) Export() (ExportTree, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := ExportTree{
		Version:     1,
		Created:     db.created,
		Collections: make(map[string]ExportedCollection, len(db.collections)),
	}

	for name, cs := range db.collections {
		schemaImg, err := codec.SchemaToImage(cs.schema)
		if err != nil {
			return ExportTree{}, fmt.Errorf("exporting schema for collection %q: %w", name, err)
		}
		plainDocs, err := db.decryptedDocuments(cs)
		if err != nil {
			return ExportTree{}, err
		}
		out.Collections[name] = ExportedCollection{
			Schema:    schemaImg,
			Documents: sortedDocumentSlice(plainDocs),
		}
	}

	return out, nil
}

// Import merges tree into the database: collections absent locally are
// created from the exported schema, and every document is inserted
// through the normal insert path (so validation, defaults, indexing, and
// encryption all apply). A document is only re-assigned a fresh _id if
// its exported form lacks one.
func (db *Database) Import(tree ExportTree) error {
	for name, exported := range tree.Collections {
		s, err := codec.ImageToSchema(exported.Schema)
		if err != nil {
			return &verrors.FormatError{Reason: fmt.Sprintf("collection %q has a malformed exported schema: %v", name, err)}
		}

		db.mu.RLock()
		_, exists := db.collections[name]
		db.mu.RUnlock()

		if !exists {
			if err := db.CreateCollection(name, CollectionOptions{Schema: s}); err != nil {
				return err
			}
		}

		for _, doc := range exported.Documents {
			if _, err := db.Insert(name, doc); err != nil {
				return fmt.Errorf("importing into collection %q: %w", name, err)
			}
		}
	}

	return nil
}
