package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeObject parses a JSON object out of raw model output. Models wrap
// their JSON in prose or markdown fences often enough that a strict parse
// alone loses usable answers, so on failure the first balanced {...} block
// is tried before giving up.
func DecodeObject(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty input")
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in output")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("decode JSON object: %w", err)
	}
	return nil
}
