package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/caselink/internal/action"
	"github.com/soyeahso/caselink/internal/domain"
	"github.com/soyeahso/caselink/internal/ui"
)

var (
	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78")).
			PaddingLeft(2)

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			PaddingLeft(2)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// describeAction renders one action as a short human-readable line.
func describeAction(a action.Action) string {
	switch v := a.(type) {
	case action.Navigate:
		if len(v.SearchParams) == 0 {
			return "navigate " + v.Path
		}
		return fmt.Sprintf("navigate %s %s", v.Path, formatParams(v.SearchParams))
	case action.SetSearchParams:
		parts := make([]string, 0, len(v.SearchParams))
		for k, val := range v.SearchParams {
			if val == nil {
				parts = append(parts, k+"=<removed>")
			} else {
				parts = append(parts, k+"="+*val)
			}
		}
		sort.Strings(parts)
		return "set " + strings.Join(parts, " ")
	case action.SelectEntities:
		if len(v.EntityIDs) == 0 {
			return "clear selection"
		}
		return "select " + strings.Join(v.EntityIDs, ", ")
	case action.GenerateEvidenceCard:
		s := "evidence card for " + strings.Join(v.PersonIDs, ", ")
		if v.NavigateToEvidenceCard != nil && *v.NavigateToEvidenceCard {
			s += " (open)"
		}
		return s
	case action.FocusLinkedSuspects:
		return "focus graph on " + strings.Join(v.EntityIDs, ", ")
	default:
		return string(a.Type())
	}
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " ")
}

// renderTurn formats the assistant reply, the applied actions and the
// resulting view.
func renderTurn(message string, res ui.Result) string {
	var b strings.Builder
	b.WriteString(assistantStyle.Render("assistant") + " " + message + "\n")

	style := actionStyle
	if res.Fallback {
		style = fallbackStyle
		b.WriteString(noticeStyle.Render("  no actions returned; applied a local fallback") + "\n")
	}
	for _, a := range res.Applied {
		b.WriteString(style.Render("→ "+describeAction(a)) + "\n")
	}
	for _, err := range res.Errors {
		b.WriteString(errorStyle.Render("  ! "+err.Error()) + "\n")
	}
	b.WriteString(renderState(res.State))
	return b.String()
}

// renderState shows the current view as a small panel.
func renderState(s ui.State) string {
	lines := []string{"view " + urlStyle.Render(s.URL())}
	if len(s.Selected) > 0 {
		lines = append(lines, "selected "+strings.Join(s.Selected, ", "))
	}
	if len(s.Focused) > 0 {
		lines = append(lines, "focused "+strings.Join(s.Focused, ", "))
	}
	if s.Evidence != nil {
		lines = append(lines, "evidence "+s.Evidence.Title)
		if s.Evidence.Summary != "" {
			lines = append(lines, noticeStyle.Render(s.Evidence.Summary))
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// renderHistory lists a session log, system notices included.
func renderHistory(msgs []domain.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("you") + " " + m.Content + "\n")
		case domain.RoleAssistant:
			b.WriteString(assistantStyle.Render("assistant") + " " + m.Content + "\n")
		default:
			b.WriteString(noticeStyle.Render(m.Content) + "\n")
		}
	}
	return b.String()
}

func renderError(err error) string {
	return errorStyle.Render("error") + " " + err.Error() + "\n"
}
