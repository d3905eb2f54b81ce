// Package verrors defines the engine's error taxonomy.
//
// Each kind is a concrete struct so callers can discriminate with errors.As
// instead of string-matching messages, while still wrapping an underlying
// cause with %w the way the rest of the module does.
package verrors

import "fmt"

// ConfigError is raised for a missing passphrase or an invalid path at open.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FormatError is raised when the container's magic or version does not match.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return fmt.Sprintf("format error: %s", e.Reason) }

// IntegrityError is raised when the stored ciphertext digest does not match
// the recomputed one on open.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string { return fmt.Sprintf("integrity error: %s", e.Reason) }

// CryptoError is raised on decryption failure: wrong passphrase, corrupt
// payload, or a field that fails to decrypt.
type CryptoError struct {
	Reason string
	Err    error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("crypto error: %s", e.Reason)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// ValidationError is raised for any schema-rule violation on insert/update,
// including rejection of fields not declared in the schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// SchemaError is raised when the schema definition itself is malformed.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema error: %s", e.Reason) }

// CollectionError is raised for operations against a missing collection, or a
// duplicate collection creation.
type CollectionError struct {
	Collection string
	Reason     string
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection error: %s: %s", e.Collection, e.Reason)
}

// DocumentError is raised when a referenced document id does not exist where
// one is required.
type DocumentError struct {
	Collection string
	DocumentID string
	Reason     string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document error: %s/%s: %s", e.Collection, e.DocumentID, e.Reason)
}

// IndexError is raised for duplicate index creation, a duplicate value found
// while building a unique index, or dropping a missing index.
type IndexError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error: %s.%s: %s", e.Collection, e.Field, e.Reason)
}

// UniqueConstraintError specializes ValidationError for unique-field
// collisions, per the spec's "may be a specialization of ValidationError".
type UniqueConstraintError struct {
	*ValidationError
	Collection string
	Value      interface{}
}

func NewUniqueConstraintError(collection, field string, value interface{}) *UniqueConstraintError {
	return &UniqueConstraintError{
		ValidationError: &ValidationError{
			Field:  field,
			Reason: "value collides with an existing document",
		},
		Collection: collection,
		Value:      value,
	}
}

// StorageError is raised for an underlying file system error during save or
// open, and captures the offending path.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
