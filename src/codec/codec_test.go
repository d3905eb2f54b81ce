package codec_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfangunl/VerusDB/src/codec"
)

func TestContainerEncodeDecodeRoundTrip(t *testing.T) {
	c := codec.Container{
		Salt:       []byte("0123456789abcdef0123456789abcdef"),
		DigestHex:  "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		IV:         []byte("0123456789abcdef"),
		Ciphertext: []byte("some ciphertext bytes of no particular meaning"),
	}

	buf := codec.Encode(c)
	decoded, err := codec.Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, c.Salt, decoded.Salt)
	assert.Equal(t, c.DigestHex, decoded.DigestHex)
	assert.Equal(t, c.IV, decoded.IV)
	assert.Equal(t, c.Ciphertext, decoded.Ciphertext)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := codec.Decode([]byte("not a valid container at all"))
	assert.Error(t, err)
}

func TestImageEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	img := codec.NewEmptyImage(now)
	img.Collections["users"] = codec.CollectionImage{
		Schema: map[string]interface{}{
			"name": map[string]interface{}{"type": "string", "required": true},
		},
		Documents: map[string]map[string]interface{}{
			"doc-1": {"_id": "doc-1", "name": "Ada"},
		},
	}

	jsonBytes, err := codec.EncodeImage(img)
	require.NoError(t, err)

	decoded, err := codec.DecodeImage(jsonBytes)
	require.NoError(t, err)

	assert.True(t, decoded.Header.Created.Equal(now))
	require.Contains(t, decoded.Collections, "users")
	assert.Equal(t, "Ada", decoded.Collections["users"].Documents["doc-1"]["name"])
}

func TestFileInitOpenSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vdb")
	f := codec.NewFile(path, 0, 1)
	defer f.Close()

	key, salt, err := f.Init("correct passphrase", 1000, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, key)
	require.NotEmpty(t, salt)

	assert.True(t, f.Exists())

	img, reopenedKey, _, err := f.Open("correct passphrase", 1000)
	require.NoError(t, err)
	assert.Equal(t, key, reopenedKey)
	assert.Empty(t, img.Collections)
}

func TestFileOpenFailsWithWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vdb")
	f := codec.NewFile(path, 0, 1)
	defer f.Close()

	_, _, err := f.Init("right passphrase", 1000, time.Now())
	require.NoError(t, err)

	_, _, _, err = f.Open("wrong passphrase", 1000)
	assert.Error(t, err)
}

func TestFileSavePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vdb")
	f := codec.NewFile(path, 0, 1)

	key, salt, err := f.Init("passphrase", 1000, time.Now())
	require.NoError(t, err)

	img := codec.NewEmptyImage(time.Now())
	img.Collections["widgets"] = codec.CollectionImage{
		Schema:    map[string]interface{}{},
		Documents: map[string]map[string]interface{}{"1": {"_id": "1"}},
	}
	require.NoError(t, f.Save(img, key, salt))
	f.Close()

	f2 := codec.NewFile(path, 0, 1)
	defer f2.Close()
	reopened, _, _, err := f2.Open("passphrase", 1000)
	require.NoError(t, err)
	assert.Contains(t, reopened.Collections, "widgets")
}

func TestImageDecodeNormalizesNestedDocumentsArraysDatesAndBytes(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond).UTC()
	img := codec.NewEmptyImage(now)
	img.Collections["events"] = codec.CollectionImage{
		Schema: map[string]interface{}{},
		Documents: map[string]map[string]interface{}{
			"evt-1": {
				"_id":       "evt-1",
				"occursAt":  now,
				"payload":   []byte("raw bytes"),
				"tags":      []interface{}{"a", "b"},
				"metadata":  map[string]interface{}{"nested": map[string]interface{}{"deep": "value"}},
				"createdAt": now,
			},
		},
	}

	jsonBytes, err := codec.EncodeImage(img)
	require.NoError(t, err)

	decoded, err := codec.DecodeImage(jsonBytes)
	require.NoError(t, err)

	doc := decoded.Collections["events"].Documents["evt-1"]

	occursAt, ok := doc["occursAt"].(time.Time)
	require.True(t, ok, "occursAt must decode as time.Time, not a BSON wrapper type")
	assert.True(t, occursAt.Equal(now))

	payload, ok := doc["payload"].([]byte)
	require.True(t, ok, "payload must decode as []byte, not a BSON wrapper type")
	assert.Equal(t, []byte("raw bytes"), payload)

	tags, ok := doc["tags"].([]interface{})
	require.True(t, ok, "tags must decode as []interface{}, not primitive.A")
	assert.Equal(t, []interface{}{"a", "b"}, tags)

	metadata, ok := doc["metadata"].(map[string]interface{})
	require.True(t, ok, "metadata must decode as map[string]interface{}, not primitive.M")
	nested, ok := metadata["nested"].(map[string]interface{})
	require.True(t, ok, "nested document must also be normalized")
	assert.Equal(t, "value", nested["deep"])
}

func TestAppendOperationTrimsToCapacity(t *testing.T) {
	var log []codec.OperationLogEntry
	now := time.Now()
	for i := 0; i < 5; i++ {
		log = codec.AppendOperation(log, "insert", "detail", now, 3)
	}
	assert.Len(t, log, 3)
}
