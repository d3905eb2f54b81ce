package schema_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfangunl/VerusDB/src/schema"
)

func sampleSchema() schema.Schema {
	minLen := 1
	return schema.Schema{
		"name": schema.FieldDefinition{Type: schema.TypeString, Required: true, MinLength: &minLen},
		"age":  schema.FieldDefinition{Type: schema.TypeNumber},
		"tags": schema.FieldDefinition{Type: schema.TypeArray},
		"joined": schema.FieldDefinition{
			Type:    schema.TypeDate,
			Default: schema.GeneratorNow,
		},
	}
}

func TestValidateSchemaRejectsUnknownType(t *testing.T) {
	bad := schema.Schema{"x": schema.FieldDefinition{Type: "unknown"}}
	err := schema.ValidateSchema(bad)
	assert.Error(t, err)
}

func TestValidateDocumentRequiresRequiredField(t *testing.T) {
	_, err := schema.ValidateDocument(map[string]interface{}{}, sampleSchema(), time.Now(), "")
	require.Error(t, err)
}

func TestValidateDocumentMaterializesDefaultsAndReservedFields(t *testing.T) {
	input := map[string]interface{}{"name": "Ada"}
	now := time.Now()

	doc, err := schema.ValidateDocument(input, sampleSchema(), now, "")
	require.NoError(t, err)

	assert.Equal(t, "Ada", doc["name"])
	assert.NotEmpty(t, doc[schema.FieldID])
	assert.WithinDuration(t, now, doc[schema.FieldCreatedAt].(time.Time), time.Second)
	assert.WithinDuration(t, now, doc[schema.FieldUpdatedAt].(time.Time), time.Second)

	joined, ok := doc["joined"].(time.Time)
	require.True(t, ok)
	assert.False(t, joined.IsZero())
}

func TestValidateDocumentRejectsUndeclaredField(t *testing.T) {
	input := map[string]interface{}{"name": "Ada", "unknownField": 1}
	_, err := schema.ValidateDocument(input, sampleSchema(), time.Now(), "")
	assert.Error(t, err)
}

func TestValidateDocumentPreservesExistingIDOnUpdate(t *testing.T) {
	input := map[string]interface{}{"name": "Ada"}
	doc, err := schema.ValidateDocument(input, sampleSchema(), time.Now(), "existing-id-123")
	require.NoError(t, err)
	assert.Equal(t, "existing-id-123", doc[schema.FieldID])
}

func TestValidateFieldValueEnforcesMinLength(t *testing.T) {
	def := sampleSchema()["name"]
	_, err := schema.ValidateFieldValue("name", "", def)
	assert.Error(t, err)
}

func TestValidateFieldValueEnforcesEnum(t *testing.T) {
	def := schema.FieldDefinition{Type: schema.TypeString, Enum: []interface{}{"red", "blue"}}
	_, err := schema.ValidateFieldValue("color", "green", def)
	assert.Error(t, err)

	_, err = schema.ValidateFieldValue("color", "red", def)
	assert.NoError(t, err)
}

func TestFieldDefinitionJSONRoundTripPreservesGeneratorDefault(t *testing.T) {
	def := schema.FieldDefinition{Type: schema.TypeDate, Default: schema.GeneratorNow}
	raw, err := def.MarshalJSON()
	require.NoError(t, err)

	var decoded schema.FieldDefinition
	require.NoError(t, decoded.UnmarshalJSON(raw))

	gen, ok := decoded.Default.(schema.Generator)
	require.True(t, ok)
	assert.Equal(t, schema.GeneratorNow, gen)
}

func TestFieldDefinitionJSONRoundTripPreservesLiteralDefault(t *testing.T) {
	def := schema.FieldDefinition{Type: schema.TypeNumber, Default: 42.0}
	raw, err := def.MarshalJSON()
	require.NoError(t, err)

	var decoded schema.FieldDefinition
	require.NoError(t, decoded.UnmarshalJSON(raw))

	assert.Equal(t, 42.0, decoded.Default)
}
