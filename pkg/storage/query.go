package storage

// QueryFilter is a flat field-equality filter compiled against a decoded
// document's exported fields. BoltDB has no query engine of its own, so
// Get-style operations that are not a direct key or natural-key lookup fall
// back to a full bucket scan evaluated through this predicate; that is a
// deliberate, documented standard-library seam rather than an attempt to
// reimplement a query planner.
//
// A []string value is treated as an "is one of" match against a string
// field; any other value is an equality match.
type QueryFilter map[string]interface{}

// Matches reports whether doc (already decoded into a map[string]interface{}
// view of its JSON representation) satisfies every field in the filter.
func (f QueryFilter) Matches(doc map[string]interface{}) bool {
	for field, want := range f {
		got, ok := doc[field]
		if !ok {
			return false
		}
		if list, isList := want.([]string); isList {
			if !containsValue(list, got) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

func containsValue(list []string, got interface{}) bool {
	s, ok := got.(string)
	if !ok {
		return false
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
