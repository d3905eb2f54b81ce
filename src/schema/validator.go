package schema

import (
	"fmt"
	"math"
	"time"

	"github.com/irfangunl/VerusDB/src/helpers"
	"github.com/irfangunl/VerusDB/src/verrors"
)

// Reserved system field names, carried through from input when present and
// otherwise materialized by ValidateDocument.
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

func isReserved(name string) bool {
	return name == FieldID || name == FieldCreatedAt || name == FieldUpdatedAt
}

// ValidateDocument checks input against schema, materializing defaults and
// reserved fields, and returns the fully-formed document ready for storage.
// input is never mutated; the returned map is a fresh copy.
//
// now is supplied by the caller (rather than read from time.Now() here) so
// that a single insert/update call stamps createdAt/updatedAt with exactly
// one instant throughout.
func ValidateDocument(input map[string]interface{}, s Schema, now time.Time, existingID string) (map[string]interface{}, error) {
	if input == nil {
		return nil, &verrors.ValidationError{Reason: "document must be a non-nil mapping"}
	}

	out := make(map[string]interface{}, len(input)+3)

	for name, def := range s {
		value, present := input[name]
		if !present {
			if def.Default != nil {
				value = materializeDefault(def.Default)
				present = true
			}
		}
		if !present {
			if def.Required {
				return nil, &verrors.ValidationError{Field: name, Reason: "required field is missing"}
			}
			continue
		}
		normalized, err := ValidateFieldValue(name, value, def)
		if err != nil {
			return nil, err
		}
		out[name] = normalized
	}

	for name := range input {
		if _, inSchema := s[name]; inSchema {
			continue
		}
		if isReserved(name) {
			continue
		}
		return nil, &verrors.ValidationError{Field: name, Reason: "field is not defined in schema"}
	}

	// Reserved fields: carried through from input when present, else
	// materialized.
	if id, ok := input[FieldID].(string); ok && id != "" {
		out[FieldID] = id
	} else if existingID != "" {
		out[FieldID] = existingID
	} else {
		out[FieldID] = helpers.GenerateDocumentID()
	}

	if createdRaw, ok := input[FieldCreatedAt]; ok {
		created, valid := helpers.ParseDate(createdRaw)
		if !valid {
			return nil, &verrors.ValidationError{Field: FieldCreatedAt, Reason: "must be a valid date"}
		}
		out[FieldCreatedAt] = created
	} else {
		out[FieldCreatedAt] = now
	}

	out[FieldUpdatedAt] = now

	return out, nil
}

func materializeDefault(def interface{}) interface{} {
	if gen, ok := def.(Generator); ok {
		if fn, ok := DefaultGenerators[gen]; ok {
			return fn()
		}
		return nil
	}
	return def
}

// ValidateFieldValue checks a single value against its field definition and
// returns the normalized form to store (dates are normalized to time.Time).
func ValidateFieldValue(name string, value interface{}, def FieldDefinition) (interface{}, error) {
	normalized, err := checkType(name, value, def.Type)
	if err != nil {
		return nil, err
	}

	if len(def.Enum) > 0 {
		matched := false
		for _, allowed := range def.Enum {
			if valuesEqual(normalized, allowed) {
				matched = true
				break
			}
		}
		if !matched {
			return nil, &verrors.ValidationError{Field: name, Reason: "value is not one of the allowed enum values"}
		}
	}

	switch def.Type {
	case TypeNumber:
		n := normalized.(float64)
		if def.Min != nil && n < *def.Min {
			return nil, &verrors.ValidationError{Field: name, Reason: fmt.Sprintf("value %v is below minimum %v", n, *def.Min)}
		}
		if def.Max != nil && n > *def.Max {
			return nil, &verrors.ValidationError{Field: name, Reason: fmt.Sprintf("value %v is above maximum %v", n, *def.Max)}
		}
	case TypeString:
		length := len([]rune(normalized.(string)))
		if err := checkLength(name, length, def); err != nil {
			return nil, err
		}
	case TypeArray:
		length := len(normalized.([]interface{}))
		if err := checkLength(name, length, def); err != nil {
			return nil, err
		}
	}

	if def.Validate != "" {
		fn, ok := Validators[def.Validate]
		if !ok {
			return nil, &verrors.SchemaError{Reason: fmt.Sprintf("field %q references unknown validator %q", name, def.Validate)}
		}
		result := fn(normalized)
		if !result.Ok {
			reason := result.Reason
			if reason == "" {
				reason = "failed custom validation"
			}
			return nil, &verrors.ValidationError{Field: name, Reason: reason}
		}
	}

	return normalized, nil
}

func checkLength(name string, length int, def FieldDefinition) error {
	if def.MinLength != nil && length < *def.MinLength {
		return &verrors.ValidationError{Field: name, Reason: fmt.Sprintf("length %d is below minimum %d", length, *def.MinLength)}
	}
	if def.MaxLength != nil && length > *def.MaxLength {
		return &verrors.ValidationError{Field: name, Reason: fmt.Sprintf("length %d is above maximum %d", length, *def.MaxLength)}
	}
	return nil
}

func checkType(name string, value interface{}, kind FieldKind) (interface{}, error) {
	switch kind {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, &verrors.ValidationError{Field: name, Reason: "expected a string"}
		}
		return s, nil
	case TypeNumber:
		n, ok := asFloat(value)
		if !ok {
			return nil, &verrors.ValidationError{Field: name, Reason: "expected a number"}
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, &verrors.ValidationError{Field: name, Reason: "numeric value must be finite"}
		}
		return n, nil
	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, &verrors.ValidationError{Field: name, Reason: "expected a boolean"}
		}
		return b, nil
	case TypeDate:
		t, ok := helpers.ParseDate(value)
		if !ok {
			return nil, &verrors.ValidationError{Field: name, Reason: "expected a date or a date-parseable string"}
		}
		return t, nil
	case TypeObject:
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, &verrors.ValidationError{Field: name, Reason: "expected an object"}
		}
		return m, nil
	case TypeArray:
		a, ok := value.([]interface{})
		if !ok {
			return nil, &verrors.ValidationError{Field: name, Reason: "expected an array"}
		}
		return a, nil
	case TypeBytes:
		switch b := value.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
		return nil, &verrors.ValidationError{Field: name, Reason: "expected raw bytes"}
	default:
		return nil, &verrors.SchemaError{Reason: fmt.Sprintf("unsupported field type %q", kind)}
	}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func valuesEqual(a, b interface{}) bool {
	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	return a == b
}
