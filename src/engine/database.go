// Package engine implements the database engine (component C5): the
// public library surface clients embed, coordinating the crypto,
// file-codec, schema, and query/update layers beneath it.
package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/irfangunl/VerusDB/src/codec"
	"github.com/irfangunl/VerusDB/src/settings"
	"github.com/irfangunl/VerusDB/src/verrors"
)

// Database is a single open embedded database instance, bound to one file
// path and one passphrase-derived key. All public methods are safe for
// concurrent use: mutating operations take the write lock, read-only
// operations take the read lock, matching the spec's concurrency model of
// a per-instance lock around an otherwise single-threaded engine.
type Database struct {
	mu sync.RWMutex

	file *codec.File
	key  []byte
	salt []byte

	created  time.Time
	modified time.Time

	collections map[string]*collectionState
	indexes     map[string]*indexState // keyed "<collection>.<field>"

	operationLog []codec.OperationLogEntry

	opts   settings.Options
	logger *zap.SugaredLogger
}

// Option configures a Database at Open time.
type Option func(*settings.Options)

// WithLogger sets the structured logger the engine reports diagnostics to.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *settings.Options) { o.Logger = l }
}

// WithOptions overlays the given Options wholesale (useful for tests that
// need a lowered PBKDF2 iteration count).
func WithOptions(custom settings.Options) Option {
	return func(o *settings.Options) { *o = custom }
}

// Open opens the database file at path under passphrase, creating it with
// an empty, encrypted image if it does not already exist.
func Open(path, passphrase string, opts ...Option) (*Database, error) {
	if passphrase == "" {
		return nil, &verrors.ConfigError{Reason: "passphrase must not be empty"}
	}
	if path == "" {
		return nil, &verrors.ConfigError{Reason: "path must not be empty"}
	}

	var resolved settings.Options
	for _, opt := range opts {
		opt(&resolved)
	}
	resolved = resolved.WithDefaults()

	file := codec.NewFile(path, resolved.GzipLevel, resolved.SaveQueueDepth)

	db := &Database{
		file:        file,
		collections: map[string]*collectionState{},
		indexes:     map[string]*indexState{},
		opts:        resolved,
		logger:      resolved.Logger,
	}

	if !file.Exists() {
		now := time.Now()
		key, salt, err := file.Init(passphrase, resolved.PBKDF2Iterations, now)
		if err != nil {
			db.logger.Errorw("failed to initialize new database file", "path", path, "error", err)
			return nil, err
		}
		db.key, db.salt = key, salt
		db.created, db.modified = now, now
		db.logger.Infow("created new database file", "path", path)
		return db, nil
	}

	img, key, salt, err := file.Open(passphrase, resolved.PBKDF2Iterations)
	if err != nil {
		db.logger.Errorw("failed to open database file", "path", path, "error", err)
		return nil, err
	}

	if err := db.loadImage(img); err != nil {
		return nil, err
	}
	db.key, db.salt = key, salt

	db.logger.Infow("opened database file", "path", path, "collections", len(db.collections))
	return db, nil
}

// Close stops the database's background save queue. It does not delete any
// in-memory state; a Database is not usable after Close.
func (db *Database) Close() {
	db.file.Close()
}

// Backup copies the current on-disk file to dest byte-for-byte.
func (db *Database) Backup(dest string) error {
	return db.file.Backup(dest)
}

// Compact clears the operation log and persists the result.
func (db *Database) Compact() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.operationLog = nil
	if err := db.saveLocked(); err != nil {
		return err
	}
	db.logger.Infow("compacted operation log")
	return nil
}

func (db *Database) loadImage(img codec.Image) error {
	db.created = img.Header.Created
	db.modified = img.Header.Modified
	db.operationLog = img.OperationLog

	for name, colImg := range img.Collections {
		s, err := codec.ImageToSchema(colImg.Schema)
		if err != nil {
			return &verrors.FormatError{Reason: fmt.Sprintf("collection %q has a malformed schema: %v", name, err)}
		}
		cs := &collectionState{
			name:      name,
			schema:    s,
			documents: map[string]map[string]interface{}{},
		}
		for id, doc := range colImg.Documents {
			cs.documents[id] = doc
		}
		db.collections[name] = cs
	}

	for key, idxImg := range img.Indexes {
		idx := &indexState{
			collection: idxImg.Collection,
			field:      idxImg.Field,
			unique:     idxImg.Unique,
			sparse:     idxImg.Sparse,
			entries:    map[string]map[string]struct{}{},
		}
		for valueKey, ids := range idxImg.Entries {
			set := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			idx.entries[valueKey] = set
		}
		db.indexes[key] = idx
	}

	return nil
}

// snapshotLocked renders the current in-memory state as a codec.Image. The
// caller must hold at least the read lock.
func (db *Database) snapshotLocked(now time.Time) (codec.Image, error) {
	img := codec.Image{
		Header: codec.HeaderImage{
			Created:  db.created,
			Modified: now,
		},
		Collections:  map[string]codec.CollectionImage{},
		Indexes:      map[string]codec.IndexImage{},
		OperationLog: db.operationLog,
	}

	for name, cs := range db.collections {
		schemaImg, err := codec.SchemaToImage(cs.schema)
		if err != nil {
			return codec.Image{}, fmt.Errorf("encoding schema for collection %q: %w", name, err)
		}
		docs := make(map[string]map[string]interface{}, len(cs.documents))
		for id, doc := range cs.documents {
			docs[id] = doc
		}
		img.Collections[name] = codec.CollectionImage{
			Schema:    schemaImg,
			Documents: docs,
		}
	}

	for key, idx := range db.indexes {
		entries := make(map[string][]string, len(idx.entries))
		for valueKey, set := range idx.entries {
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			entries[valueKey] = ids
		}
		img.Indexes[key] = codec.IndexImage{
			Collection: idx.collection,
			Field:      idx.field,
			Unique:     idx.unique,
			Sparse:     idx.sparse,
			Entries:    entries,
		}
	}

	return img, nil
}

// saveLocked persists the current in-memory state. The caller must hold the
// write lock; on success db.modified is advanced to the instant used for
// the save.
func (db *Database) saveLocked() error {
	now := time.Now()
	img, err := db.snapshotLocked(now)
	if err != nil {
		return err
	}
	if err := db.file.Save(img, db.key, db.salt); err != nil {
		db.logger.Errorw("save failed", "error", err)
		return err
	}
	db.modified = now
	return nil
}

func (db *Database) recordOperation(operation, details string) {
	db.operationLog = codec.AppendOperation(db.operationLog, operation, details, time.Now(), db.opts.OperationLogCapacity)
}

func (db *Database) getCollectionLocked(name string) (*collectionState, error) {
	cs, ok := db.collections[name]
	if !ok {
		return nil, &verrors.CollectionError{Collection: name, Reason: "collection does not exist"}
	}
	return cs, nil
}
