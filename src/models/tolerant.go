package models

import (
	"encoding/json"
	"strings"
)

// DecodeLooseArray parses a JSON array out of model output. Models frequently
// wrap the array in prose or code fences, so when a direct parse fails the
// substring between the first '[' and the last ']' is tried as a fallback.
// Unparsable input reports false and leaves v untouched; it is never an error.
func DecodeLooseArray(raw string, v any) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if tryUnmarshal(raw, v) {
		return true
	}
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return false
	}
	return tryUnmarshal(raw[start:end+1], v)
}

func tryUnmarshal(raw string, v any) bool {
	// Decode into a throwaway first so a failed parse cannot leave v
	// partially filled.
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return false
	}
	return json.Unmarshal(probe, v) == nil
}
