package query

// FindOptions bundles the sort/skip/limit/projection knobs accepted by
// Find.
type FindOptions struct {
	Sort       []SortKey
	Skip       int
	Limit      int
	Projection []string
}

// ApplyProjection returns a copy of doc containing only the named fields
// (plus the reserved system fields, which are always kept). A nil or empty
// projection returns doc unchanged.
func ApplyProjection(doc map[string]interface{}, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return doc
	}
	out := make(map[string]interface{}, len(fields)+3)
	for _, reserved := range []string{"_id", "createdAt", "updatedAt"} {
		if v, ok := doc[reserved]; ok {
			out[reserved] = v
		}
	}
	for _, path := range fields {
		if v, ok := GetPath(doc, path); ok {
			SetPath(out, path, v)
		}
	}
	return out
}

// Paginate applies skip then limit to docs. limit <= 0 means unlimited.
func Paginate(docs []map[string]interface{}, skip, limit int) []map[string]interface{} {
	if skip > 0 {
		if skip >= len(docs) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
