package rules

import "strings"

// Resolve walks a dot-separated path into a nested document and returns the
// value it lands on, or nil when any segment is missing or the path descends
// into a non-object. A segment suffixed with "[]" returns that array field
// directly and terminates resolution; a missing array field yields an empty
// slice, mirroring the configured-rule semantics the rest of the engine
// expects.
func Resolve(doc map[string]any, path string) any {
	current := any(doc)
	for _, key := range strings.Split(path, ".") {
		if arrayKey, ok := strings.CutSuffix(key, "[]"); ok {
			obj, ok := current.(map[string]any)
			if !ok {
				return []any{}
			}
			if arr, ok := obj[arrayKey].([]any); ok {
				return arr
			}
			return []any{}
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := obj[key]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// asFloat coerces the numeric types a resolved document value may carry.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
