package vectorstore

import (
	"fmt"
	"time"
)

// coerceMetadata normalizes chunk metadata for JSON storage: primitives and
// lists of primitives pass through, timestamps become RFC 3339 strings, and
// anything else is flattened to its string form so one odd value cannot make
// the whole chunk unstorable.
func coerceMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = coerceValue(v)
	}
	return out
}

func coerceValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = coerceValue(item)
		}
		return out
	case []string:
		return val
	case map[string]any:
		return coerceMetadata(val)
	default:
		return fmt.Sprint(val)
	}
}
