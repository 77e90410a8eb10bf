// Package uicontext turns the client's UI location into the bounded
// context snapshot sent to the model with every turn.
package uicontext

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// TimelineSlots is the number of hourly slots on the investigation timeline.
	TimelineSlots = 72
	// MaxEntityIDs caps entity ids read from the query string.
	MaxEntityIDs = 50
)

// Keys accepted for the case id and entity ids, first present wins.
var (
	caseIDKeys   = []string{"case_id", "caseId", "case"}
	entityIDKeys = []string{"entity_ids", "entityIds"}
)

// UIContext is the client's current route and raw query string.
type UIContext struct {
	Path   string `json:"path"`
	Search string `json:"search"`
}

// Derived holds the values the agent cares about, read from a UIContext.
type Derived struct {
	Path      string   `json:"path"`
	City      string   `json:"city,omitempty"`
	Hour      *int     `json:"hour,omitempty"`
	CaseID    string   `json:"caseId,omitempty"`
	EntityIDs []string `json:"entityIds,omitempty"`
}

// ParseSearch parses a query string, with or without its leading '?',
// keeping the first value of each key. Malformed input yields an empty map.
func ParseSearch(search string) map[string]string {
	out := map[string]string{}
	values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(search), "?"))
	if err != nil {
		return out
	}
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Derive computes city, hour, case id and entity ids from ui.
func Derive(ui UIContext) Derived {
	params := ParseSearch(ui.Search)
	d := Derived{
		Path: ui.Path,
		City: strings.TrimSpace(params["city"]),
	}

	if raw, ok := params["hour"]; ok {
		if h, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			h = NormalizeHour(h)
			d.Hour = &h
		}
	}

	for _, k := range caseIDKeys {
		if v := strings.TrimSpace(params[k]); v != "" {
			d.CaseID = v
			break
		}
	}

	for _, k := range entityIDKeys {
		if v, ok := params[k]; ok && strings.TrimSpace(v) != "" {
			d.EntityIDs = SplitIDs(v)
			break
		}
	}
	return d
}

// NormalizeHour folds any integer onto the timeline, including negatives.
func NormalizeHour(h int) int {
	return ((h % TimelineSlots) + TimelineSlots) % TimelineSlots
}

// SplitIDs splits a comma-separated list, dropping blanks, capped at MaxEntityIDs.
func SplitIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		out = append(out, part)
		if len(out) == MaxEntityIDs {
			break
		}
	}
	return out
}
