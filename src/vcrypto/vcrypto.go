// Package vcrypto implements the database's crypto primitives: passphrase
// key derivation, symmetric encryption of the file image, an integrity
// digest, and per-field encryption for schema fields flagged encrypted.
package vcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/irfangunl/VerusDB/src/verrors"
)

const (
	// SaltLength is the size in bytes of the salt used for key derivation.
	SaltLength = 32
	// KeyLength is the size in bytes of the derived symmetric key.
	KeyLength = 32
	// IVLength is the size in bytes of the AES-CBC initialization vector.
	IVLength = 16
	// DigestLength is the size in ASCII hex characters of the integrity digest.
	DigestLength = 64
)

// GenerateSalt returns a fresh cryptographically strong salt of SaltLength
// bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 32-byte symmetric key from passphrase and salt using
// PBKDF2-HMAC-SHA256. If salt is empty, a fresh one is generated. iterations
// of 0 falls back to the spec-mandated 100000.
func DeriveKey(passphrase string, salt []byte, iterations int) (key, usedSalt []byte, err error) {
	if passphrase == "" {
		return nil, nil, &verrors.ConfigError{Reason: "passphrase must not be empty"}
	}
	if iterations <= 0 {
		iterations = 100000
	}
	if len(salt) == 0 {
		salt, err = GenerateSalt()
		if err != nil {
			return nil, nil, err
		}
	}
	key = pbkdf2.Key([]byte(passphrase), salt, iterations, KeyLength, sha256.New)
	return key, salt, nil
}

// Encrypt AES-256-CBC encrypts plaintext under key with PKCS#7 padding and a
// freshly generated iv.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, &verrors.CryptoError{Reason: "constructing AES cipher", Err: err}
	}

	iv = make([]byte, IVLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, &verrors.CryptoError{Reason: "generating iv", Err: err}
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// Decrypt AES-256-CBC decrypts ciphertext under key and iv, stripping PKCS#7
// padding. Returns CryptoError on padding failure. A wrong key is reported
// only through the padding check: CBC carries no authentication, so a wrong
// key that happens to leave valid padding returns garbage without an error.
func Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &verrors.CryptoError{Reason: "constructing AES cipher", Err: err}
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &verrors.CryptoError{Reason: "ciphertext is not a multiple of the block size"}
	}
	if len(iv) != IVLength {
		return nil, &verrors.CryptoError{Reason: "invalid iv length"}
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, &verrors.CryptoError{Reason: "removing PKCS#7 padding (wrong passphrase or corrupt payload)", Err: err}
	}
	return unpadded, nil
}

// Digest returns the lowercase hex SHA-256 digest of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest reports whether b's digest equals the hex-encoded want,
// comparing in constant time.
func VerifyDigest(b []byte, want string) bool {
	got := Digest(b)
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// EncryptField JSON-serializes value, encrypts the UTF-8 bytes, and returns
// base64(iv || ciphertext).
func EncryptField(value interface{}, key []byte) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", &verrors.CryptoError{Reason: "marshaling field value", Err: err}
	}
	ciphertext, iv, err := Encrypt(raw, key)
	if err != nil {
		return "", err
	}
	combined := append(append([]byte{}, iv...), ciphertext...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// DecryptField reverses EncryptField: base64-decode, split the leading iv,
// decrypt, and JSON-parse the plaintext back into value.
func DecryptField(encoded string, key []byte) (interface{}, error) {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &verrors.CryptoError{Reason: "base64-decoding field", Err: err}
	}
	if len(combined) < IVLength {
		return nil, &verrors.CryptoError{Reason: "encrypted field shorter than iv"}
	}
	iv, ciphertext := combined[:IVLength], combined[IVLength:]

	plaintext, err := Decrypt(ciphertext, iv, key)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return nil, &verrors.CryptoError{Reason: "unmarshaling decrypted field", Err: err}
	}
	return value, nil
}

// HashPassphrase produces a bcrypt adaptive hash of p, for the out-of-scope
// admin surface's login flow. The engine itself never calls this.
func HashPassphrase(p string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", &verrors.CryptoError{Reason: "hashing passphrase", Err: err}
	}
	return string(hash), nil
}

// VerifyPassphrase reports whether p matches the bcrypt hash produced by
// HashPassphrase.
func VerifyPassphrase(p, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", n)
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("malformed padding bytes")
		}
	}
	return data[:n-padLen], nil
}
