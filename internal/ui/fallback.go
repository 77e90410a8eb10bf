package ui

import (
	"regexp"
	"strings"

	"github.com/soyeahso/caselink/internal/action"
)

var (
	caseIDPattern = regexp.MustCompile(`(?i)\b(CASE_[A-Z]{2,10}_\d{1,6}|[A-Z]{2}_[A-Z]{2,10}_\d{1,6})\b`)
	focusPattern  = regexp.MustCompile(`(?i)\bfocus\s+on\s+(this|the|current)\s+case\b`)
)

// Fallback derives at most one navigate action from the user's own words.
// A case id opens its evidence card; "focus on this case" opens the graph
// scoped to the case already in params. Only allowlisted paths and keys are
// ever produced.
func Fallback(answer string, params map[string]string) []action.Action {
	if m := caseIDPattern.FindStringSubmatch(answer); m != nil {
		if nav, ok := action.NavigateTo("/evidence-card", map[string]string{"case_id": strings.ToUpper(m[1])}); ok {
			return []action.Action{nav}
		}
	}
	if focusPattern.MatchString(answer) {
		if caseID := strings.TrimSpace(params["case_id"]); caseID != "" {
			if nav, ok := action.NavigateTo("/graph-explorer", map[string]string{"case_id": caseID}); ok {
				return []action.Action{nav}
			}
		}
	}
	return nil
}
