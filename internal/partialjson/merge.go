package partialjson

// Merge folds a newer snapshot into the accumulated one and returns the result.
//
// Objects merge key by key. Arrays are replaced by the newer array element by
// element, keeping any trailing elements the newer array does not have yet, so
// an array never gets shorter. Scalars are overwritten. A nil src value does
// not erase an existing one.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		if value == nil {
			continue
		}
		dst[key] = mergeValue(dst[key], value)
	}
	return dst
}

func mergeValue(old, next any) any {
	if next == nil {
		return old
	}
	switch n := next.(type) {
	case map[string]any:
		if o, ok := old.(map[string]any); ok {
			return Merge(o, n)
		}
		return Merge(nil, n)
	case []any:
		o, _ := old.([]any)
		return mergeArray(o, n)
	default:
		return next
	}
}

func mergeArray(old, next []any) []any {
	size := len(next)
	if len(old) > size {
		size = len(old)
	}
	merged := make([]any, size)
	for i := range merged {
		switch {
		case i < len(next) && i < len(old):
			merged[i] = mergeValue(old[i], next[i])
		case i < len(next):
			merged[i] = mergeValue(nil, next[i])
		default:
			merged[i] = old[i]
		}
	}
	return merged
}
