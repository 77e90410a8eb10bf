// Package ui applies validated actions to the client's view state and
// synthesizes a fallback action when the model returned none.
package ui

import (
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/soyeahso/caselink/internal/store"
)

// State is the client's view: route, query parameters, panel selection and
// the last evidence card fetched.
type State struct {
	Path     string              `json:"path"`
	Params   map[string]string   `json:"params,omitempty"`
	Selected []string            `json:"selected,omitempty"`
	Focused  []string            `json:"focused,omitempty"`
	Evidence *store.EvidenceCard `json:"evidence,omitempty"`
}

// NewState returns the state for a route and raw query string.
func NewState(path, search string) State {
	if path == "" {
		path = "/"
	}
	s := State{Path: path}
	values, err := url.ParseQuery(strings.TrimPrefix(search, "?"))
	if err != nil {
		return s
	}
	for k, v := range values {
		if len(v) == 0 {
			continue
		}
		if s.Params == nil {
			s.Params = map[string]string{}
		}
		s.Params[k] = v[0]
	}
	return s
}

// Search encodes the query parameters with a leading "?", or "" when there
// are none. Keys are sorted.
func (s State) Search() string {
	if len(s.Params) == 0 {
		return ""
	}
	v := url.Values{}
	for k, val := range s.Params {
		v.Set(k, val)
	}
	return "?" + v.Encode()
}

// URL is the route plus query string.
func (s State) URL() string {
	return s.Path + s.Search()
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Params = maps.Clone(s.Params)
	c.Selected = slices.Clone(s.Selected)
	c.Focused = slices.Clone(s.Focused)
	return c
}
