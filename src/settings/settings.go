// Package settings holds the configuration knobs the engine accepts at Open time.
//
// Unlike the admin/CLI collaborators, the engine never reads these from a config
// file or the environment itself; a host process owns that and passes the
// resolved Options value in.
package settings

import "go.uber.org/zap"

// Options configures a single database instance. The zero value is usable:
// every field defaults to the spec's mandated value when left unset.
type Options struct {
	// PBKDF2Iterations overrides the key-derivation iteration count. Zero means
	// the spec-mandated 100000. Tests may lower this to keep suites fast; it
	// must never be lowered in a production Open call.
	PBKDF2Iterations int

	// GzipLevel controls the compression level used when serializing the
	// in-memory image before encryption. Zero means gzip's default (level 6,
	// per the spec).
	GzipLevel int

	// OperationLogCapacity bounds the number of audit entries retained across
	// saves. Zero means the spec-mandated 1000.
	OperationLogCapacity int

	// SaveQueueDepth sizes the buffered channel backing the single-writer save
	// queue. Zero means 1 (the queue exists purely to serialize writers, not to
	// allow multiple in-flight saves).
	SaveQueueDepth int

	// Logger receives structured diagnostics for every mutating operation. A
	// nil Logger is replaced with a no-op sugared logger.
	Logger *zap.SugaredLogger
}

const (
	DefaultPBKDF2Iterations     = 100000
	DefaultGzipLevel            = 6
	DefaultOperationLogCapacity = 1000
	DefaultSaveQueueDepth       = 1
)

// WithDefaults returns a copy of o with every zero-valued field replaced by its
// spec-mandated default.
func (o Options) WithDefaults() Options {
	if o.PBKDF2Iterations <= 0 {
		o.PBKDF2Iterations = DefaultPBKDF2Iterations
	}
	if o.GzipLevel == 0 {
		o.GzipLevel = DefaultGzipLevel
	}
	if o.OperationLogCapacity <= 0 {
		o.OperationLogCapacity = DefaultOperationLogCapacity
	}
	if o.SaveQueueDepth <= 0 {
		o.SaveQueueDepth = DefaultSaveQueueDepth
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}
