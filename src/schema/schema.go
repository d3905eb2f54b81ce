// Package schema implements the schema definition grammar and document
// validation rules (component C3 of the engine): field kinds, defaults,
// constraints, and the registries that let defaults and validators be
// referenced by a persisted identifier instead of a closure.
package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/irfangunl/VerusDB/src/verrors"
)

// FieldKind enumerates the supported document field types.
type FieldKind string

const (
	TypeString  FieldKind = "string"
	TypeNumber  FieldKind = "number"
	TypeBoolean FieldKind = "boolean"
	TypeDate    FieldKind = "date"
	TypeObject  FieldKind = "object"
	TypeArray   FieldKind = "array"
	TypeBytes   FieldKind = "bytes"
)

func validKind(k FieldKind) bool {
	switch k {
	case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeObject, TypeArray, TypeBytes:
		return true
	}
	return false
}

// Generator names a zero-argument default-value generator resolved against
// the DefaultGenerators registry at validation time, instead of persisting
// a closure in the file format.
type Generator string

// GeneratorNow produces the current instant, e.g. for createdAt-style
// fields.
const GeneratorNow Generator = "now"

// Validator names a predicate resolved against the Validators registry at
// validation time. The engine core restricts validate hooks to this
// registry rather than requiring arbitrary persisted code.
type Validator string

// DefaultGenerators maps a Generator identifier to the function that
// produces a fresh value. Callers may register additional generators
// before opening a database; the registry is process-global by design
// (the spec treats it as a static lookup, not per-instance state).
var DefaultGenerators = map[Generator]func() interface{}{
	GeneratorNow: func() interface{} { return time.Now() },
}

// ValidatorResult is returned by a registered Validator: Ok reports whether
// the value passed, and Reason is used as the ValidationError message when
// it did not (a default reason is substituted when empty).
type ValidatorResult struct {
	Ok     bool
	Reason string
}

// Validators maps a Validator identifier to the predicate function it names.
var Validators = map[Validator]func(value interface{}) ValidatorResult{}

// FieldDefinition declares one field of a Schema.
type FieldDefinition struct {
	Type      FieldKind
	Required  bool
	Unique    bool
	Encrypted bool
	Index     bool

	// Default is either a literal value copied verbatim, a Generator
	// resolved via DefaultGenerators, or nil when the field has no default.
	Default interface{}

	Min       *float64
	Max       *float64
	MinLength *int
	MaxLength *int
	Enum      []interface{}

	// Validate names a registered predicate, or is empty.
	Validate Validator
}

// Schema is a mapping from field name to its definition.
type Schema map[string]FieldDefinition

// persistedFieldDefinition is the on-disk / exported JSON shape. Default is
// split so a Generator round-trips as an identifier rather than a value.
type persistedFieldDefinition struct {
	Type      string                 `json:"type"`
	Required  bool                   `json:"required,omitempty"`
	Unique    bool                   `json:"unique,omitempty"`
	Encrypted bool                   `json:"encrypted,omitempty"`
	Index     bool                   `json:"index,omitempty"`
	Default   *persistedDefaultValue `json:"default,omitempty"`
	Min       *float64               `json:"min,omitempty"`
	Max       *float64               `json:"max,omitempty"`
	MinLength *int                   `json:"minLength,omitempty"`
	MaxLength *int                   `json:"maxLength,omitempty"`
	Enum      []interface{}          `json:"enum,omitempty"`
	Validate  string                 `json:"validate,omitempty"`
}

type persistedDefaultValue struct {
	Generator string      `json:"generator,omitempty"`
	Literal   interface{} `json:"literal"`
}

// MarshalJSON implements json.Marshaler for FieldDefinition.
func (f FieldDefinition) MarshalJSON() ([]byte, error) {
	p := persistedFieldDefinition{
		Type:      string(f.Type),
		Required:  f.Required,
		Unique:    f.Unique,
		Encrypted: f.Encrypted,
		Index:     f.Index,
		Min:       f.Min,
		Max:       f.Max,
		MinLength: f.MinLength,
		MaxLength: f.MaxLength,
		Enum:      f.Enum,
		Validate:  string(f.Validate),
	}
	if f.Default != nil {
		if gen, ok := f.Default.(Generator); ok {
			p.Default = &persistedDefaultValue{Generator: string(gen)}
		} else {
			p.Default = &persistedDefaultValue{Literal: f.Default}
		}
	}
	return json.Marshal(p)
}

// UnmarshalJSON implements json.Unmarshaler for FieldDefinition.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var p persistedFieldDefinition
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	f.Type = FieldKind(p.Type)
	f.Required = p.Required
	f.Unique = p.Unique
	f.Encrypted = p.Encrypted
	f.Index = p.Index
	f.Min = p.Min
	f.Max = p.Max
	f.MinLength = p.MinLength
	f.MaxLength = p.MaxLength
	f.Enum = p.Enum
	f.Validate = Validator(p.Validate)
	if p.Default != nil {
		if p.Default.Generator != "" {
			f.Default = Generator(p.Default.Generator)
		} else {
			f.Default = p.Default.Literal
		}
	}
	return nil
}

// ValidateSchema checks that a Schema's declarations are well-formed:
// every field names a supported kind, and any literal default satisfies
// that field's own constraints. Unknown keys in a loosely-typed source map
// are expected to have already been dropped by the caller (forward
// compatibility is handled at the decode boundary, not here).
func ValidateSchema(s Schema) error {
	for name, def := range s {
		if !validKind(def.Type) {
			return &verrors.SchemaError{Reason: fmt.Sprintf("field %q has unsupported type %q", name, def.Type)}
		}
		if def.Default != nil {
			if _, isGen := def.Default.(Generator); !isGen {
				if _, err := ValidateFieldValue(name, def.Default, def); err != nil {
					return &verrors.SchemaError{Reason: fmt.Sprintf("field %q default value is invalid: %v", name, err)}
				}
			}
		}
		if def.Validate != "" {
			if _, ok := Validators[def.Validate]; !ok {
				return &verrors.SchemaError{Reason: fmt.Sprintf("field %q references unknown validator %q", name, def.Validate)}
			}
		}
	}
	return nil
}
