package codec

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/irfangunl/VerusDB/src/schema"
	"github.com/irfangunl/VerusDB/src/verrors"
)

// Image is the decrypted, decompressed shape of the database's persistent
// state: the "json_image" the spec describes.
type Image struct {
	Header       HeaderImage                `bson:"header"`
	Collections  map[string]CollectionImage `bson:"collections"`
	Indexes      map[string]IndexImage      `bson:"indexes"`
	OperationLog []OperationLogEntry        `bson:"operationLog"`
}

// HeaderImage carries the database's creation and last-modified instants.
type HeaderImage struct {
	Created  time.Time `bson:"created"`
	Modified time.Time `bson:"modified"`
}

// CollectionImage is one collection's persisted state. Schema is stored in
// its generic, JSON-decoded form (see SchemaToImage/ImageToSchema) rather
// than as schema.Schema directly, so that schema.FieldDefinition's custom
// JSON (un)marshaling — which is what keeps a Generator default persisted
// as a named identifier instead of a closure — runs on a clean
// encoding/json boundary instead of relying on BSON's reflection-based
// encoding of a custom named type.
type CollectionImage struct {
	Schema    map[string]interface{}            `bson:"schema"`
	Documents map[string]map[string]interface{} `bson:"documents"`
}

// SchemaToImage converts a schema.Schema into the generic map form stored
// in a CollectionImage.
func SchemaToImage(s schema.Schema) (map[string]interface{}, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// ImageToSchema reverses SchemaToImage.
func ImageToSchema(m map[string]interface{}) (schema.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var s schema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// IndexImage is one secondary index's persisted state, keyed in the parent
// Image.Indexes map by "<collection>.<field>".
type IndexImage struct {
	Collection string              `bson:"collection"`
	Field      string              `bson:"field"`
	Unique     bool                `bson:"unique"`
	Sparse     bool                `bson:"sparse"`
	Entries    map[string][]string `bson:"entries"`
}

// OperationLogEntry is one bounded audit entry.
type OperationLogEntry struct {
	Operation string    `bson:"operation"`
	Details   string    `bson:"details"`
	Timestamp time.Time `bson:"timestamp"`
}

// EncodeImage renders img as the UTF-8 JSON text the spec calls the
// "json_image", ahead of gzip and encryption. Values round-trip through
// BSON first (via bson.Marshal/Unmarshal into a generic bson.M) and are
// then rendered with MarshalExtJSON, whose canonical Extended JSON gives
// time.Time and []byte fields a lossless textual form that plain
// encoding/json cannot provide on its own.
func EncodeImage(img Image) ([]byte, error) {
	raw, err := bson.Marshal(img)
	if err != nil {
		return nil, &verrors.StorageError{Path: "<image>", Err: err}
	}

	var generic bson.M
	if err := bson.Unmarshal(raw, &generic); err != nil {
		return nil, &verrors.StorageError{Path: "<image>", Err: err}
	}

	jsonBytes, err := bson.MarshalExtJSON(generic, true, false)
	if err != nil {
		return nil, &verrors.StorageError{Path: "<image>", Err: err}
	}
	return jsonBytes, nil
}

// DecodeImage reverses EncodeImage.
func DecodeImage(jsonBytes []byte) (Image, error) {
	var generic bson.M
	if err := bson.UnmarshalExtJSON(jsonBytes, true, &generic); err != nil {
		return Image{}, &verrors.FormatError{Reason: "image is not valid extended JSON: " + err.Error()}
	}

	raw, err := bson.Marshal(generic)
	if err != nil {
		return Image{}, &verrors.FormatError{Reason: "re-encoding decoded image: " + err.Error()}
	}

	var img Image
	if err := bson.Unmarshal(raw, &img); err != nil {
		return Image{}, &verrors.FormatError{Reason: "decoding image into the in-memory shape: " + err.Error()}
	}

	for name, col := range img.Collections {
		for id, doc := range col.Documents {
			col.Documents[id] = normalizeDocument(doc)
		}
		img.Collections[name] = col
	}

	return img, nil
}

// normalizeDocument rewrites a document decoded off the wire so every field
// holds the same concrete Go type ValidateDocument would have produced on
// insert, rather than the BSON driver's named wrapper types
// (primitive.M/A/Binary/DateTime), which fail the type assertions the
// schema validator and query evaluator perform against plain map/slice/
// []byte/time.Time values.
func normalizeDocument(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = normalizeBSONValue(v)
	}
	return out
}

func normalizeBSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeBSONValue(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeBSONValue(val)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeBSONValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeBSONValue(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Binary:
		return t.Data
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

// NewEmptyImage returns the image written when a database file is created
// fresh.
func NewEmptyImage(now time.Time) Image {
	return Image{
		Header:       HeaderImage{Created: now, Modified: now},
		Collections:  map[string]CollectionImage{},
		Indexes:      map[string]IndexImage{},
		OperationLog: []OperationLogEntry{},
	}
}
