package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/irfangunl/VerusDB/src/verrors"
)

const (
	// Magic is the container's leading 4 bytes.
	Magic = "VDB1"
	// FormatVersion is the only container version this codec understands.
	FormatVersion uint32 = 1
	// digestHexLength is the length in ASCII hex characters of the stored
	// integrity digest (a SHA-256 sum).
	digestHexLength = 64
)

// Container is the fully-parsed on-disk layout described in the file
// format specification: magic, version, salt, integrity digest, iv, and
// ciphertext.
type Container struct {
	Salt       []byte
	DigestHex  string
	IV         []byte
	Ciphertext []byte
}

// Encode serializes c into the byte layout written to disk. Field order
// and widths follow the spec exactly so existing files stay readable
// across versions of this package.
func Encode(c Container) []byte {
	buf := make([]byte, 0, 16+len(c.Salt)+8+digestHexLength+len(c.IV)+len(c.Ciphertext)+8)

	buf = append(buf, []byte(Magic)...)
	buf = appendUint32(buf, FormatVersion)

	buf = appendUint32(buf, uint32(len(c.Salt)))
	buf = append(buf, c.Salt...)

	buf = appendUint32(buf, digestHexLength)
	digest := c.DigestHex
	if len(digest) != digestHexLength {
		padded := make([]byte, digestHexLength)
		copy(padded, digest)
		digest = string(padded)
	}
	buf = append(buf, []byte(digest)...)

	payload := len(c.IV) + len(c.Ciphertext)
	buf = appendUint32(buf, uint32(payload))
	buf = append(buf, c.IV...)
	buf = append(buf, c.Ciphertext...)

	return buf
}

// Decode parses the byte layout written by Encode, failing with
// FormatError on a magic or version mismatch.
func Decode(data []byte) (Container, error) {
	var c Container

	if len(data) < 16 {
		return c, &verrors.FormatError{Reason: "file is too short to contain a header"}
	}
	if string(data[0:4]) != Magic {
		return c, &verrors.FormatError{Reason: fmt.Sprintf("unrecognized magic %q", data[0:4])}
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return c, &verrors.FormatError{Reason: fmt.Sprintf("unsupported format version %d", version)}
	}

	offset := 8
	saltLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if len(data) < offset+saltLen {
		return c, &verrors.FormatError{Reason: "truncated salt"}
	}
	c.Salt = append([]byte{}, data[offset:offset+saltLen]...)
	offset += saltLen

	if len(data) < offset+4 {
		return c, &verrors.FormatError{Reason: "truncated digest length"}
	}
	digestLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if digestLen != digestHexLength {
		return c, &verrors.FormatError{Reason: fmt.Sprintf("unexpected digest length %d", digestLen)}
	}
	if len(data) < offset+digestLen {
		return c, &verrors.FormatError{Reason: "truncated digest"}
	}
	c.DigestHex = string(data[offset : offset+digestLen])
	offset += digestLen

	if len(data) < offset+4 {
		return c, &verrors.FormatError{Reason: "truncated payload length"}
	}
	payloadLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if len(data) < offset+payloadLen {
		return c, &verrors.FormatError{Reason: "truncated payload"}
	}
	if payloadLen < 16 {
		return c, &verrors.FormatError{Reason: "payload shorter than an iv"}
	}
	c.IV = append([]byte{}, data[offset:offset+16]...)
	c.Ciphertext = append([]byte{}, data[offset+16:offset+payloadLen]...)

	return c, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
