package engine

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/irfangunl/VerusDB/src/query"
	"github.com/irfangunl/VerusDB/src/schema"
	"github.com/irfangunl/VerusDB/src/vcrypto"
)

// toStorageForm returns a copy of plainDoc with every field flagged
// Encrypted in s replaced by its EncryptField ciphertext string.
func toStorageForm(plainDoc map[string]interface{}, s schema.Schema, key []byte) (map[string]interface{}, error) {
	out := query.CloneDocument(plainDoc)
	for name, def := range s {
		if !def.Encrypted {
			continue
		}
		value, present := out[name]
		if !present {
			continue
		}
		encoded, err := vcrypto.EncryptField(value, key)
		if err != nil {
			return nil, err
		}
		out[name] = encoded
	}
	return out, nil
}

// toPlainForm reverses toStorageForm: every field flagged Encrypted is
// decrypted back to its original value.
func toPlainForm(storageDoc map[string]interface{}, s schema.Schema, key []byte) (map[string]interface{}, error) {
	out := query.CloneDocument(storageDoc)
	for name, def := range s {
		if !def.Encrypted {
			continue
		}
		value, present := out[name]
		if !present {
			continue
		}
		encoded, ok := value.(string)
		if !ok {
			continue
		}
		decoded, err := vcrypto.DecryptField(encoded, key)
		if err != nil {
			return nil, err
		}
		out[name] = decoded
	}
	return out, nil
}

// decryptedDocuments returns a plaintext clone of every document in cs,
// keyed by document id, fit for querying or unique-constraint checks.
// Never mutate the result in place without cloning again: it is freshly
// allocated, but its sub-values are shared with nothing stored.
func (db *Database) decryptedDocuments(cs *collectionState) (map[string]map[string]interface{}, error) {
	out := make(map[string]map[string]interface{}, len(cs.documents))
	for id, stored := range cs.documents {
		plain, err := toPlainForm(stored, cs.schema, db.key)
		if err != nil {
			return nil, err
		}
		out[id] = plain
	}
	return out, nil
}

// stringifyIndexValue renders a field value into the index's stringified
// key space. Missing and null values map to distinct reserved keys so
// they never collide with a real value's rendering.
const (
	indexKeyMissing = "\x00__missing__"
	indexKeyNull    = "\x00__null__"
)

func stringifyIndexValue(value interface{}, present bool) string {
	if !present {
		return indexKeyMissing
	}
	if value == nil {
		return indexKeyNull
	}
	switch v := value.(type) {
	case string:
		return "s:" + v
	case bool:
		return "b:" + strconv.FormatBool(v)
	case float64:
		return "n:" + strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return "n:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case int:
		return "n:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case time.Time:
		return "t:" + v.UTC().Format(time.RFC3339Nano)
	case []byte:
		return "x:" + string(v)
	default:
		return "v:" + fmt.Sprintf("%v", v)
	}
}

// sortedDocumentSlice returns cs's decrypted documents as a stable,
// deterministically-ordered slice (by document id) so callers that do not
// specify a sort still see a repeatable iteration order across calls.
func sortedDocumentSlice(docs map[string]map[string]interface{}) []map[string]interface{} {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, docs[id])
	}
	return out
}
