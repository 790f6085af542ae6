package schema

import "strings"

// Sanitize returns a copy of v with card numbers masked, safe for diagnostic
// logging. It recurses into maps and slices; every other value passes through
// unchanged. The result must never be persisted or forwarded downstream.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if k == cardNumberField {
				if s, ok := item.(string); ok {
					out[k] = maskCard(s)
					continue
				}
			}
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return v
	}
}

func maskCard(s string) string {
	if len(s) < 8 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
