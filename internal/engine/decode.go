package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LLM responses routinely wrap JSON in markdown fences or prose. Every
// consumer in this package decodes through these two helpers so that the
// "unparsable response → safe default" policy lives in exactly one place:
// the helper returns an error, and each caller maps it to its own default
// (no memory, all unchanged, no conflicts).

// DecodeArray extracts the first JSON array from noisy LLM output and
// unmarshals it into dst (a pointer to a slice).
func DecodeArray(content string, dst any) error {
	return decodeDelimited(content, '[', ']', dst)
}

// DecodeObject extracts the first JSON object from noisy LLM output and
// unmarshals it into dst (a pointer to a struct or map).
func DecodeObject(content string, dst any) error {
	return decodeDelimited(content, '{', '}', dst)
}

func decodeDelimited(content string, open, close byte, dst any) error {
	content = stripFences(content)

	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start < 0 || end < 0 || end <= start {
		return fmt.Errorf("no JSON %c...%c found in response", open, close)
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), dst); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		// Remove first and last lines (```json and ```)
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return strings.TrimSpace(content)
}
