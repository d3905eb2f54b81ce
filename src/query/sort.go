package query

import "sort"

// SortKey is one (path, direction) pair in a compound sort specification.
// Direction is +1 for ascending, -1 for descending.
type SortKey struct {
	Path      string
	Direction int
}

// Sort orders docs in place by each SortKey in turn, with undefined values
// ranking below defined ones (first for an ascending key, last for a
// descending one) and ties broken by the next key.
func Sort(docs []map[string]interface{}, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return lessByKeys(docs[i], docs[j], keys)
	})
}

func lessByKeys(a, b map[string]interface{}, keys []SortKey) bool {
	for _, key := range keys {
		av, aok := GetPath(a, key.Path)
		bv, bok := GetPath(b, key.Path)

		switch {
		case !aok && !bok:
			continue
		case !aok:
			return key.Direction > 0
		case !bok:
			return key.Direction < 0
		}

		cmp, comparable := orderedCompare(av, bv)
		if !comparable {
			continue
		}
		if cmp == 0 {
			continue
		}
		if key.Direction < 0 {
			cmp = -cmp
		}
		return cmp < 0
	}
	return false
}
