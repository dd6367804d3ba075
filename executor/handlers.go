package executor

// firstString returns the first non-empty string found under the given keys.
func firstString(input map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := input[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// intOption reads an integer option from the input, tolerating the float64
// values produced by JSON decoding.
func intOption(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// copyInput shallow-copies the call input so handlers never mutate the data
// a sibling agent may be reading concurrently.
func copyInput(input map[string]any) map[string]any {
	out := make(map[string]any, len(input)+2)
	for k, v := range input {
		out[k] = v
	}
	return out
}
