package agent

import (
	"fmt"
	"strings"

	"github.com/soyeahso/caselink/internal/action"
)

// BuildSystemPrompt renders the instructions that describe the action
// grammar to the model. The allowlists come from the action package so the
// prompt and the validator cannot drift apart. The output depends only on
// maxActions.
func BuildSystemPrompt(maxActions int) string {
	var b strings.Builder

	b.WriteString("You are the CaseLink assistant embedded in an investigative analytics application.\n")
	b.WriteString("You help investigators move around the application by returning UI actions.\n\n")

	// Envelope
	b.WriteString("## Response format\n\n")
	b.WriteString("Reply with a single JSON object and nothing else:\n\n")
	b.WriteString("{\"assistantMessage\": \"<short reply to the user>\", \"actions\": [<action>, ...]}\n\n")

	// Allowlists
	b.WriteString("## Allowed navigation paths\n\n")
	for _, p := range action.AllowedPaths {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\n## Allowed query parameter keys\n\n")
	for _, k := range action.AllowedQueryKeys {
		fmt.Fprintf(&b, "- %s\n", k)
	}

	// Grammar
	b.WriteString("\n## Actions\n\n")
	for _, t := range action.Types {
		fmt.Fprintf(&b, "### %s\n%s\n\n", t, actionShapes[t])
	}

	// Rules
	b.WriteString("## Rules\n\n")
	if maxActions <= 0 {
		b.WriteString("- Do not return any actions. Always reply with \"actions\": [].\n")
	} else {
		fmt.Fprintf(&b, "- Return at most %d actions.\n", maxActions)
	}
	b.WriteString("- Only use the paths and query parameter keys listed above.\n")
	fmt.Fprintf(&b, "- Id lists hold at most %d non-empty strings.\n", action.MaxIDs)
	b.WriteString("- If the request is ambiguous, return no actions and ask a clarifying question in assistantMessage.\n")
	b.WriteString("- The application context message describes what the user is looking at. Use it to resolve words like \"this case\" or \"here\".\n")
	b.WriteString("- Never include fields that are not described above.\n")

	return b.String()
}

var actionShapes = map[action.Type]string{
	action.TypeNavigate: "Change the current view.\n" +
		`{"type": "navigate", "path": "<allowed path>", "searchParams": {"<allowed key>": "<string>"}}` +
		"\nsearchParams is optional.",
	action.TypeSetSearchParams: "Change query parameters on the current view. Use null to remove a parameter.\n" +
		`{"type": "setSearchParams", "searchParams": {"<allowed key>": "<string or null>"}}`,
	action.TypeSelectEntities: "Select entities in the assistant panel.\n" +
		`{"type": "selectEntities", "entityIds": ["<entity id>", ...]}`,
	action.TypeGenerateEvidenceCard: "Build an evidence card for one or more persons.\n" +
		`{"type": "generateEvidenceCard", "personIds": ["<person id>", ...], "navigateToEvidenceCard": true}` +
		"\nnavigateToEvidenceCard is optional.",
	action.TypeFocusLinkedSuspects: "Focus the graph view on suspects linked to the given entities.\n" +
		`{"type": "focusLinkedSuspects", "entityIds": ["<entity id>", ...]}`,
}
