package config

import (
	"github.com/effekt/comfybuild/internal/logging"
)

// Merge deep-merges override on top of base and returns a new document.
// Mappings merge recursively, sequences concatenate with base entries first,
// and any other combination resolves in favor of the override value.
// Neither input is mutated.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		bv, exists := out[k]
		if !exists {
			out[k] = v
			continue
		}
		out[k] = mergeValue(k, bv, v)
	}
	return out
}

func mergeValue(key string, base, override any) any {
	switch o := override.(type) {
	case map[string]any:
		if b, ok := base.(map[string]any); ok {
			return Merge(b, o)
		}
	case []any:
		if b, ok := base.([]any); ok {
			merged := make([]any, 0, len(b)+len(o))
			merged = append(merged, b...)
			return append(merged, o...)
		}
	}

	// Shape mismatches between containers are worth a trace, but they are
	// never fatal: the override value wins.
	if isContainer(base) != isContainer(override) || (isContainer(base) && isContainer(override)) {
		logging.Debug().
			Str("key", key).
			Str("base", typeName(base)).
			Str("override", typeName(override)).
			Msg("merge type conflict, override wins")
	}
	return override
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	case nil:
		return "null"
	}
	return "scalar"
}
