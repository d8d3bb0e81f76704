package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// readObjects loads every JSON object from a file. The file may be a single
// JSON document (object or array of objects) or JSONL with one object per
// line. Lines that fail to decode are counted, not fatal.
func readObjects(path string) ([]map[string]any, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	objs, skipped := decodeObjects(data)
	return objs, skipped, nil
}

// decodeObjects parses raw file content into Airbyte-unwrapped objects.
func decodeObjects(data []byte) ([]map[string]any, int) {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, 0
	}

	// Whole-document JSON first.
	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err == nil {
		switch v := doc.(type) {
		case map[string]any:
			return []map[string]any{unwrapEnvelope(v)}, 0
		case []any:
			objs := make([]map[string]any, 0, len(v))
			skipped := 0
			for _, item := range v {
				obj, ok := item.(map[string]any)
				if !ok {
					skipped++
					continue
				}
				objs = append(objs, unwrapEnvelope(obj))
			}
			return objs, skipped
		}
		return nil, 1
	}

	// Fall back to JSONL.
	var objs []map[string]any
	skipped := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			skipped++
			continue
		}
		objs = append(objs, unwrapEnvelope(obj))
	}
	return objs, skipped
}

// unwrapEnvelope strips the Airbyte wrapper when present. Bare objects pass
// through unchanged.
func unwrapEnvelope(obj map[string]any) map[string]any {
	if inner, ok := obj["_airbyte_data"].(map[string]any); ok {
		return inner
	}
	return obj
}
