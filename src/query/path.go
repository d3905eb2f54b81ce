// Package query implements the predicate matcher, field-path accessor,
// sort, projection, and update-operator application that make up the
// engine's query and update evaluator (component C4).
package query

import "strings"

// GetPath navigates a dotted field path (e.g. "a.b.c") through nested
// mappings. Any non-mapping intermediate value yields "undefined" (ok ==
// false), matching the spec's field-path semantics.
func GetPath(doc map[string]interface{}, path string) (interface{}, bool) {
	if doc == nil {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current interface{} = doc
	for _, segment := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, present := m[segment]
		if !present {
			return nil, false
		}
		current = value
	}
	return current, true
}

// SetPath assigns value at the dotted path within doc, creating intermediate
// maps as needed. It mutates doc in place and is only ever called on a copy
// the caller owns.
func SetPath(doc map[string]interface{}, path string, value interface{}) {
	segments := strings.Split(path, ".")
	current := doc
	for i, segment := range segments {
		if i == len(segments)-1 {
			current[segment] = value
			return
		}
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[segment] = next
		}
		current = next
	}
}

// UnsetPath removes the field at the dotted path within doc, if present.
func UnsetPath(doc map[string]interface{}, path string) {
	segments := strings.Split(path, ".")
	current := doc
	for i, segment := range segments {
		if i == len(segments)-1 {
			delete(current, segment)
			return
		}
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}
}
