package masking

import "strings"

const (
	maskToken   = "*****"
	identPrefix = 6
)

// MaskIdent redacts a person identifier for the standard log. The birth
// date prefix is kept so support can correlate with the secure log.
func MaskIdent(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= identPrefix {
		return maskToken
	}
	return trimmed[:identPrefix] + maskToken
}

// MaskJSON returns a copy of input where values under sensitive keys are
// masked. Nested maps and slices are walked.
func MaskJSON(input map[string]any, sensitive ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	keys := make(map[string]struct{}, len(sensitive))
	for _, key := range sensitive {
		keys[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := keys[strings.ToLower(trimmedKey)]; ok {
			masked[trimmedKey] = maskLeaf(value)
			continue
		}
		masked[trimmedKey] = maskValue(value, keys)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any, keys map[string]struct{}) any {
	switch cast := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(cast))
		for k, v := range cast {
			if _, ok := keys[strings.ToLower(k)]; ok {
				out[k] = maskLeaf(v)
				continue
			}
			out[k] = maskValue(v, keys)
		}
		return out
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item, keys))
		}
		return out
	default:
		return value
	}
}

func maskLeaf(value any) any {
	if s, ok := value.(string); ok {
		return MaskIdent(s)
	}
	return maskToken
}
