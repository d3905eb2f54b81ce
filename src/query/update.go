package query

import (
	"fmt"
)

// ApplyUpdate applies the operators named in update (a mapping from
// operator to field-operation mapping) to a deep-enough copy of doc,
// returning the resulting document. doc is never mutated.
func ApplyUpdate(doc map[string]interface{}, update map[string]interface{}) (map[string]interface{}, error) {
	out := cloneMap(doc)

	for op, fieldsRaw := range update {
		fields, ok := fieldsRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("update operator %s requires a field mapping", op)
		}
		switch op {
		case "$set":
			for path, value := range fields {
				SetPath(out, path, value)
			}
		case "$unset":
			for path := range fields {
				UnsetPath(out, path)
			}
		case "$inc":
			for path, delta := range fields {
				deltaN, ok := asComparableNumber(delta)
				if !ok {
					return nil, fmt.Errorf("$inc on %q requires a numeric operand", path)
				}
				current, present := GetPath(out, path)
				var base float64
				if present {
					base, ok = asComparableNumber(current)
					if !ok {
						return nil, fmt.Errorf("$inc on %q: existing value is not numeric", path)
					}
				}
				SetPath(out, path, base+deltaN)
			}
		case "$push":
			for path, value := range fields {
				current, present := GetPath(out, path)
				var list []interface{}
				if present {
					existing, ok := current.([]interface{})
					if !ok {
						return nil, fmt.Errorf("$push on %q: existing value is not an array", path)
					}
					list = append(list, existing...)
				}
				list = append(list, value)
				SetPath(out, path, list)
			}
		case "$pull":
			for path, value := range fields {
				current, present := GetPath(out, path)
				if !present {
					continue
				}
				existing, ok := current.([]interface{})
				if !ok {
					return nil, fmt.Errorf("$pull on %q: existing value is not an array", path)
				}
				filtered := make([]interface{}, 0, len(existing))
				for _, item := range existing {
					if !StrictEqual(item, value) {
						filtered = append(filtered, item)
					}
				}
				SetPath(out, path, filtered)
			}
		default:
			return nil, fmt.Errorf("unsupported update operator %q", op)
		}
	}

	return out, nil
}

// CloneDocument makes a deep copy of a JSON-like document tree so callers
// (the engine's read and update paths) never let a caller's mutation reach
// shared storage.
func CloneDocument(doc map[string]interface{}) map[string]interface{} {
	return cloneMap(doc)
}

func cloneMap(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
