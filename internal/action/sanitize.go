package action

import (
	"encoding/json"
	"strings"
)

// Sanitize turns untrusted, JSON-decoded model output into validated
// actions. raw must be a []any as produced by encoding/json; anything else
// yields an empty result. At most maxActions actions are returned, in input
// order. Entries that are not objects, carry an unknown type, or fail their
// variant's required-field rules are dropped without error.
func Sanitize(raw any, maxActions int) []Action {
	out := []Action{}
	items, ok := raw.([]any)
	if !ok || maxActions <= 0 {
		return out
	}

	for _, item := range items {
		if len(out) >= maxActions {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := obj["type"].(string)
		var (
			a     Action
			valid bool
		)
		switch Type(typ) {
		case TypeNavigate:
			a, valid = sanitizeNavigate(obj)
		case TypeSetSearchParams:
			a, valid = sanitizeSetSearchParams(obj)
		case TypeSelectEntities:
			ids, ok := cleanIDs(obj["entityIds"])
			a, valid = SelectEntities{EntityIDs: ids}, ok
		case TypeGenerateEvidenceCard:
			a, valid = sanitizeEvidenceCard(obj)
		case TypeFocusLinkedSuspects:
			ids, ok := cleanIDs(obj["entityIds"])
			a, valid = FocusLinkedSuspects{EntityIDs: ids}, ok && len(ids) > 0
		}
		if valid {
			out = append(out, a)
		}
	}
	return out
}

// Decode parses a JSON action array, such as a turn response received by
// a client, and re-validates it with Sanitize.
func Decode(data []byte, maxActions int) []Action {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return []Action{}
	}
	return Sanitize(raw, maxActions)
}

func sanitizeNavigate(obj map[string]any) (Action, bool) {
	path, ok := obj["path"].(string)
	if !ok || !IsAllowedPath(path) {
		return nil, false
	}
	n := Navigate{Path: path}
	if params, ok := obj["searchParams"].(map[string]any); ok {
		clean := make(map[string]string, len(params))
		for k, v := range params {
			s, ok := v.(string)
			if !ok || !IsAllowedQueryKey(k) {
				continue
			}
			clean[k] = s
		}
		if len(clean) > 0 {
			n.SearchParams = clean
		}
	}
	return n, true
}

func sanitizeSetSearchParams(obj map[string]any) (Action, bool) {
	params, ok := obj["searchParams"].(map[string]any)
	if !ok {
		return nil, false
	}
	clean := make(map[string]*string, len(params))
	for k, v := range params {
		if !IsAllowedQueryKey(k) {
			continue
		}
		switch val := v.(type) {
		case nil:
			clean[k] = nil
		case string:
			s := val
			clean[k] = &s
		}
	}
	if len(clean) == 0 {
		return nil, false
	}
	return SetSearchParams{SearchParams: clean}, true
}

// sanitizeEvidenceCard drops a card with no usable person ids. Unlike an
// empty selection, which clears state, a card for nobody has nothing to
// fetch.
func sanitizeEvidenceCard(obj map[string]any) (Action, bool) {
	ids, ok := cleanIDs(obj["personIds"])
	if !ok || len(ids) == 0 {
		return nil, false
	}
	card := GenerateEvidenceCard{PersonIDs: ids}
	if nav, ok := obj["navigateToEvidenceCard"].(bool); ok {
		card.NavigateToEvidenceCard = &nav
	}
	return card, true
}

// cleanIDs keeps the non-blank string entries of an array as given, capped
// at MaxIDs. It reports false when v is not an array.
func cleanIDs(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, min(len(items), MaxIDs))
	for _, item := range items {
		if len(ids) >= MaxIDs {
			break
		}
		s, ok := item.(string)
		if !ok {
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		ids = append(ids, s)
	}
	return ids, true
}
