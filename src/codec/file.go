package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/irfangunl/VerusDB/src/vcrypto"
	"github.com/irfangunl/VerusDB/src/verrors"
)

// File owns the on-disk container at Path: opening it, decrypting it, and
// performing the atomic write-temp-then-rename save protocol. All saves
// against a File funnel through its SaveQueue so at most one is ever in
// flight.
type File struct {
	Path      string
	GzipLevel int
	queue     *SaveQueue
}

// NewFile constructs a File wired to a fresh SaveQueue of the given depth.
func NewFile(path string, gzipLevel, queueDepth int) *File {
	if gzipLevel == 0 {
		gzipLevel = gzip.DefaultCompression
	}
	return &File{
		Path:      path,
		GzipLevel: gzipLevel,
		queue:     NewSaveQueue(queueDepth),
	}
}

// Close stops the File's save queue. It does not touch the underlying file
// handle: per the spec's resource model, no long-lived file handle is held
// between operations.
func (f *File) Close() {
	f.queue.Close()
}

// Exists reports whether the container file is present on disk.
func (f *File) Exists() bool {
	info, err := os.Stat(f.Path)
	return err == nil && !info.IsDir()
}

// Open reads and decrypts the container, returning its image along with
// the derived key and salt so the caller (the engine) can reuse them for
// subsequent saves and field encryption without re-deriving.
func (f *File) Open(passphrase string, pbkdf2Iterations int) (img Image, key, salt []byte, err error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return Image{}, nil, nil, &verrors.StorageError{Path: f.Path, Err: err}
	}

	container, err := Decode(raw)
	if err != nil {
		return Image{}, nil, nil, err
	}

	key, _, err = vcrypto.DeriveKey(passphrase, container.Salt, pbkdf2Iterations)
	if err != nil {
		return Image{}, nil, nil, err
	}

	if !vcrypto.VerifyDigest(container.Ciphertext, container.DigestHex) {
		return Image{}, nil, nil, &verrors.IntegrityError{Reason: "ciphertext digest does not match the stored digest"}
	}

	compressed, err := vcrypto.Decrypt(container.Ciphertext, container.IV, key)
	if err != nil {
		return Image{}, nil, nil, err
	}

	jsonBytes, err := gunzip(compressed)
	if err != nil {
		return Image{}, nil, nil, &verrors.CryptoError{Reason: "decompressing decrypted payload (likely the wrong passphrase)", Err: err}
	}

	img, err = DecodeImage(jsonBytes)
	if err != nil {
		return Image{}, nil, nil, err
	}

	return img, key, container.Salt, nil
}

// Init creates a fresh, empty, encrypted database file at f.Path and
// returns the key and salt it was created with. Callers must only call
// this when Exists() is false.
func (f *File) Init(passphrase string, pbkdf2Iterations int, now time.Time) (key, salt []byte, err error) {
	key, salt, err = vcrypto.DeriveKey(passphrase, nil, pbkdf2Iterations)
	if err != nil {
		return nil, nil, err
	}
	img := NewEmptyImage(now)
	if err := f.Save(img, key, salt); err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}

// Save enqueues a full-image save of img onto f's single-writer queue and
// blocks until it completes.
func (f *File) Save(img Image, key, salt []byte) error {
	return f.queue.Enqueue(func() error {
		return f.saveNow(img, key, salt)
	})
}

// saveNow performs the atomic write-temp-then-rename save protocol. It
// must only be called from within the save queue's worker.
func (f *File) saveNow(img Image, key, salt []byte) error {
	jsonBytes, err := EncodeImage(img)
	if err != nil {
		return err
	}

	compressed, err := gzipBytes(jsonBytes, f.GzipLevel)
	if err != nil {
		return &verrors.StorageError{Path: f.Path, Err: err}
	}

	ciphertext, iv, err := vcrypto.Encrypt(compressed, key)
	if err != nil {
		return err
	}

	digest := vcrypto.Digest(ciphertext)

	buf := Encode(Container{
		Salt:       salt,
		DigestHex:  digest,
		IV:         iv,
		Ciphertext: ciphertext,
	})

	return f.writeAtomic(buf)
}

// writeAtomic writes buf to a sibling temp file, fsyncs it, verifies it is
// non-empty, and renames it over f.Path. Any failure removes the temp file
// and surfaces the original error.
func (f *File) writeAtomic(buf []byte) error {
	dir := filepath.Dir(f.Path)
	tmpPath := f.Path + ".tmp"

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return &verrors.StorageError{Path: tmpPath, Err: err}
	}

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &verrors.StorageError{Path: tmpPath, Err: err}
	}

	if err := fsyncFile(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &verrors.StorageError{Path: tmpPath, Err: err}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &verrors.StorageError{Path: tmpPath, Err: err}
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return &verrors.StorageError{Path: tmpPath, Err: fmt.Errorf("temporary file is empty after write")}
	}

	if err := os.Rename(tmpPath, f.Path); err != nil {
		os.Remove(tmpPath)
		return &verrors.StorageError{Path: f.Path, Err: err}
	}

	// Best-effort: fsync the containing directory so the rename itself
	// survives a crash. Failure here does not unwind the already-committed
	// rename.
	_ = fsyncDir(dir)

	return nil
}

// Backup copies the current database file byte-for-byte to dest, without
// re-serializing in-memory state.
func (f *File) Backup(dest string) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return &verrors.StorageError{Path: f.Path, Err: err}
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return &verrors.StorageError{Path: dest, Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return &verrors.StorageError{Path: dest, Err: err}
	}
	return fsyncFile(out)
}

func gzipBytes(b []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
