// Package action defines the UI actions the agent may emit and the
// validator that is the only way to construct them from model output.
package action

import (
	"encoding/json"
	"slices"
)

// AllowedPaths are the views an action may navigate to.
var AllowedPaths = []string{
	"/",
	"/heatmap",
	"/graph-explorer",
	"/evidence-card",
	"/cases",
}

// AllowedQueryKeys are the query parameters an action may set.
var AllowedQueryKeys = []string{
	"city",
	"hour",
	"case_id",
	"entity_ids",
}

// MaxIDs caps every id list carried by an action.
const MaxIDs = 50

// Type discriminates the action variants on the wire.
type Type string

const (
	TypeNavigate             Type = "navigate"
	TypeSetSearchParams      Type = "setSearchParams"
	TypeSelectEntities       Type = "selectEntities"
	TypeGenerateEvidenceCard Type = "generateEvidenceCard"
	TypeFocusLinkedSuspects  Type = "focusLinkedSuspects"
)

// Types lists every recognized action type in prompt order.
var Types = []Type{
	TypeNavigate,
	TypeSetSearchParams,
	TypeSelectEntities,
	TypeGenerateEvidenceCard,
	TypeFocusLinkedSuspects,
}

// Action is one validated UI instruction. The set of implementations is
// closed; values only come from Sanitize or from the constructors below,
// which draw on the fixed allowlists.
type Action interface {
	Type() Type
	sealed()
}

// Navigate changes the route and sets query parameters.
type Navigate struct {
	Path         string
	SearchParams map[string]string
}

// SetSearchParams merges query parameters; a nil value deletes the key.
type SetSearchParams struct {
	SearchParams map[string]*string
}

// SelectEntities replaces the in-panel selection.
type SelectEntities struct {
	EntityIDs []string
}

// GenerateEvidenceCard requests a read-only evidence summary for persons.
type GenerateEvidenceCard struct {
	PersonIDs              []string
	NavigateToEvidenceCard *bool
}

// FocusLinkedSuspects scopes the graph view to a set of entities.
type FocusLinkedSuspects struct {
	EntityIDs []string
}

func (Navigate) Type() Type             { return TypeNavigate }
func (SetSearchParams) Type() Type      { return TypeSetSearchParams }
func (SelectEntities) Type() Type       { return TypeSelectEntities }
func (GenerateEvidenceCard) Type() Type { return TypeGenerateEvidenceCard }
func (FocusLinkedSuspects) Type() Type  { return TypeFocusLinkedSuspects }

func (Navigate) sealed()             {}
func (SetSearchParams) sealed()      {}
func (SelectEntities) sealed()       {}
func (GenerateEvidenceCard) sealed() {}
func (FocusLinkedSuspects) sealed()  {}

// NavigateTo builds a navigate action from allowlisted values. It reports
// false when the path or any key falls outside the allowlists.
func NavigateTo(path string, params map[string]string) (Navigate, bool) {
	if !IsAllowedPath(path) {
		return Navigate{}, false
	}
	for k := range params {
		if !IsAllowedQueryKey(k) {
			return Navigate{}, false
		}
	}
	n := Navigate{Path: path}
	if len(params) > 0 {
		n.SearchParams = make(map[string]string, len(params))
		for k, v := range params {
			n.SearchParams[k] = v
		}
	}
	return n, true
}

// IsAllowedPath reports whether p is an allowlisted view path.
func IsAllowedPath(p string) bool {
	return slices.Contains(AllowedPaths, p)
}

// IsAllowedQueryKey reports whether k is an allowlisted query key.
func IsAllowedQueryKey(k string) bool {
	return slices.Contains(AllowedQueryKeys, k)
}

// MarshalJSON emits the tagged wire form.
func (a Navigate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         Type              `json:"type"`
		Path         string            `json:"path"`
		SearchParams map[string]string `json:"searchParams,omitempty"`
	}{a.Type(), a.Path, a.SearchParams})
}

// MarshalJSON emits the tagged wire form; deletions encode as null.
func (a SetSearchParams) MarshalJSON() ([]byte, error) {
	params := a.SearchParams
	if params == nil {
		params = map[string]*string{}
	}
	return json.Marshal(struct {
		Type         Type               `json:"type"`
		SearchParams map[string]*string `json:"searchParams"`
	}{a.Type(), params})
}

// MarshalJSON emits the tagged wire form.
func (a SelectEntities) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Type     `json:"type"`
		EntityIDs []string `json:"entityIds"`
	}{a.Type(), nonNil(a.EntityIDs)})
}

// MarshalJSON emits the tagged wire form.
func (a GenerateEvidenceCard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type                   Type     `json:"type"`
		PersonIDs              []string `json:"personIds"`
		NavigateToEvidenceCard *bool    `json:"navigateToEvidenceCard,omitempty"`
	}{a.Type(), nonNil(a.PersonIDs), a.NavigateToEvidenceCard})
}

// MarshalJSON emits the tagged wire form.
func (a FocusLinkedSuspects) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Type     `json:"type"`
		EntityIDs []string `json:"entityIds"`
	}{a.Type(), nonNil(a.EntityIDs)})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
