package llm

import (
	"encoding/json"
	"strings"
)

// Normalize extracts reply text from a serving payload. It checks, in
// order, choices[0].message.content, choices[0].text, and predictions[0]
// (a string or an object with content). Anything else is returned as the
// payload's JSON text; a bare JSON string is returned unquoted.
func Normalize(raw json.RawMessage) string {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return string(raw)
	}
	if s, ok := payload.(string); ok {
		return s
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return string(raw)
	}

	if first, ok := firstOf(obj["choices"]); ok {
		if msg, ok := first["message"].(map[string]any); ok {
			if text, ok := contentText(msg["content"]); ok {
				return text
			}
		}
		if text, ok := first["text"].(string); ok {
			return text
		}
	}

	if preds, ok := obj["predictions"].([]any); ok && len(preds) > 0 {
		switch p := preds[0].(type) {
		case string:
			return p
		case map[string]any:
			if text, ok := contentText(p["content"]); ok {
				return text
			}
		}
	}

	return string(raw)
}

func firstOf(v any) (map[string]any, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	m, ok := items[0].(map[string]any)
	return m, ok
}

// contentText accepts a string or a list of {type:"text", text} parts.
func contentText(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, true
	case []any:
		var b strings.Builder
		found := false
		for _, part := range c {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				b.WriteString(text)
				found = true
			}
		}
		return b.String(), found
	}
	return "", false
}
