package internal

import (
	"strings"
)

// ExtractText returns the text carried by a message content value.
// Content is either a plain string or an array of parts; only parts with
// type "text" contribute, concatenated in order. Tool calls, images and
// other part types are dropped.
func ExtractText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var b strings.Builder
		for _, part := range c {
			m, ok := asObject(part)
			if !ok {
				continue
			}
			if t, _ := stringField(m, "type"); t != "text" {
				continue
			}
			if text, ok := m["text"].(string); ok {
				b.WriteString(text)
			}
		}
		return b.String()
	default:
		return ""
	}
}
