package query

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Match reports whether doc satisfies query, per the spec's predicate
// matching rules: a mapping from field path to either a literal value
// (implicit equality) or an operator mapping, with top-level $and/$or.
func Match(doc map[string]interface{}, q map[string]interface{}) bool {
	for key, spec := range q {
		switch key {
		case "$and":
			subs, ok := spec.([]interface{})
			if !ok || !matchAll(doc, subs) {
				return false
			}
		case "$or":
			subs, ok := spec.([]interface{})
			if !ok || !matchAny(doc, subs) {
				return false
			}
		default:
			value, present := GetPath(doc, key)
			if !matchField(value, present, spec) {
				return false
			}
		}
	}
	return true
}

func matchAll(doc map[string]interface{}, subs []interface{}) bool {
	for _, sub := range subs {
		m, ok := sub.(map[string]interface{})
		if !ok || !Match(doc, m) {
			return false
		}
	}
	return true
}

func matchAny(doc map[string]interface{}, subs []interface{}) bool {
	for _, sub := range subs {
		m, ok := sub.(map[string]interface{})
		if ok && Match(doc, m) {
			return true
		}
	}
	return false
}

// matchField evaluates one field's clause: spec is either a literal value
// (implicit $eq) or an operator map.
func matchField(value interface{}, present bool, spec interface{}) bool {
	opMap, isOpMap := asOperatorMap(spec)
	if !isOpMap {
		return present && StrictEqual(value, spec)
	}

	if pattern, hasRegex := opMap["$regex"]; hasRegex {
		options, _ := opMap["$options"].(string)
		if !present || !matchRegex(value, pattern, options) {
			return false
		}
	}

	for op, operand := range opMap {
		if op == "$regex" || op == "$options" {
			continue
		}
		if !evalOperator(value, present, op, operand) {
			return false
		}
	}
	return true
}

// asOperatorMap reports whether spec looks like an operator mapping, i.e.
// every key begins with "$". A plain literal map (for a type=object field)
// is therefore never mistaken for an operator mapping.
func asOperatorMap(spec interface{}) (map[string]interface{}, bool) {
	m, ok := spec.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil, false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return m, true
}

func evalOperator(value interface{}, present bool, op string, operand interface{}) bool {
	switch op {
	case "$eq":
		return present && StrictEqual(value, operand)
	case "$ne":
		return !present || !StrictEqual(value, operand)
	case "$gt":
		cmp, ok := orderedCompare(value, operand)
		return present && ok && cmp > 0
	case "$gte":
		cmp, ok := orderedCompare(value, operand)
		return present && ok && cmp >= 0
	case "$lt":
		cmp, ok := orderedCompare(value, operand)
		return present && ok && cmp < 0
	case "$lte":
		cmp, ok := orderedCompare(value, operand)
		return present && ok && cmp <= 0
	case "$in":
		return present && inMembership(value, operand)
	case "$nin":
		return !present || !inMembership(value, operand)
	default:
		return false
	}
}

// matchRegex matches value's stringified form against pattern, applying
// options (e.g. "i" for case-insensitive) as an inline regex flag group.
func matchRegex(value interface{}, pattern interface{}, options string) bool {
	pat, ok := pattern.(string)
	if !ok {
		return false
	}
	if options != "" {
		pat = "(?" + options + ")" + pat
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return false
	}
	return re.MatchString(stringify(value))
}

// StrictEqual implements the spec's strict equality: numeric equality by
// value, strings by codepoint, and no cross-type coercion otherwise.
func StrictEqual(a, b interface{}) bool {
	if an, aok := asComparableNumber(a); aok {
		if bn, bok := asComparableNumber(b); bok {
			return an == bn
		}
		return false
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Equal(bt)
		}
		return false
	}
	if !isComparable(a) || !isComparable(b) {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// isComparable reports whether v's dynamic type is safe to pass to the
// equality operator. Object and array field values decode as
// map[string]interface{} and []interface{}, both uncomparable, so
// equality on them falls back to StrictEqual's reflect.DeepEqual path
// instead of panicking.
func isComparable(v interface{}) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}, []byte:
		return false
	}
	return true
}

// orderedCompare returns -1/0/1 comparing a to b, and a comparable flag
// that is false for mixed-type operands — mixed-type comparisons must never
// match under $gt/$gte/$lt/$lte.
func orderedCompare(a, b interface{}) (cmp int, comparable bool) {
	if an, aok := asComparableNumber(a); aok {
		if bn, bok := asComparableNumber(b); bok {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
		return 0, false
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	return 0, false
}

func inMembership(value interface{}, operand interface{}) bool {
	list, ok := operand.([]interface{})
	if !ok {
		return false
	}
	for _, candidate := range list {
		if StrictEqual(value, candidate) {
			return true
		}
	}
	return false
}

func asComparableNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
