// Package helpers collects small utilities shared across the engine's
// components, mirroring the role of the teacher's own helpers package.
package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateDocumentID returns a string combining a monotonic-ish time
// component with a random suffix, sufficient to guarantee per-collection
// uniqueness under expected workloads. The unique-constraint check the
// engine runs on every insert remains the authoritative guarantee; this is
// just a good-faith generator, not a coordination protocol.
func GenerateDocumentID() string {
	return fmt.Sprintf("%x-%s", time.Now().UnixNano(), uuid.New().String())
}

// GenerateUUID returns a fresh random UUID string, without the time-ordering
// component GenerateDocumentID adds.
func GenerateUUID() string {
	return uuid.New().String()
}

// StripQuotes removes a single matching pair of leading/trailing quotes
// from s, if present.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// dateLayouts are tried in order when normalizing a string value for a
// date-typed field.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate attempts to interpret value as an instant. It accepts time.Time
// directly, or a string that parses under one of the accepted layouts. The
// returned instant (the first return value) is what callers store, so a
// date string is normalized to a time.Time on ingress; the second return
// value reports whether parsing succeeded.
func ParseDate(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
