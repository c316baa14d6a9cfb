package scraper

import (
	"encoding/json"
	"strings"
)

// NormalizeJSON strips the fenced code-block wrapper models like to put
// around JSON payloads and unmarshals the remainder into dst. The fence
// markers are only removed at the very start and end of the response; invalid
// JSON fails with ErrInvalidJSON carrying the parse diagnostic.
func NormalizeJSON(response string, dst any) error {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return ErrInvalidJSON{Err: err}
	}
	return nil
}
