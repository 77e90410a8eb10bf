package agent

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// MaxFallbackMessage caps the assistant message taken from a reply that
// held no usable JSON object.
const MaxFallbackMessage = 500

// Reply is a model reply split into its message and its still-untrusted
// action list.
type Reply struct {
	AssistantMessage string
	// RawActions is whatever the reply carried under "actions". It must go
	// through action.Sanitize before use.
	RawActions any
	// Structured is false when no JSON object could be found.
	Structured bool
}

// ParseReply extracts the JSON envelope from model text, tolerating prose
// and code fences around it. Text without an object degrades to a plain
// message with no actions.
func ParseReply(text string) Reply {
	obj, ok := extractObject(text)
	if !ok {
		return Reply{AssistantMessage: truncateRunes(strings.TrimSpace(text), MaxFallbackMessage)}
	}
	msg, _ := obj["assistantMessage"].(string)
	return Reply{
		AssistantMessage: msg,
		RawActions:       obj["actions"],
		Structured:       true,
	}
}

// extractObject returns the first JSON object in text. The whole text is
// tried first, then each balanced {...} span in order.
func extractObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if obj, ok := decodeObject(trimmed); ok {
		return obj, true
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != '{' {
			continue
		}
		end := matchBrace(trimmed, i)
		if end < 0 {
			continue
		}
		if obj, ok := decodeObject(trimmed[i : end+1]); ok {
			return obj, true
		}
	}
	return nil, false
}

func decodeObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
