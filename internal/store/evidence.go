package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Relationship types recognized in social edges.
const (
	RelFenceConnection = "fence_connection"
	RelKnownAssociate  = "known_associate"
)

// Claim is one evidence statement with its supporting facts.
type Claim struct {
	Claim   string   `json:"claim"`
	Support []string `json:"support"`
}

// Signals groups claims by the kind of analysis that produced them.
type Signals struct {
	Geospatial []Claim `json:"geospatial"`
	Narrative  []Claim `json:"narrative"`
	Social     []Claim `json:"social"`
}

// EvidenceCard summarizes what links a set of persons to cases and each other.
type EvidenceCard struct {
	Title       string   `json:"title"`
	Entities    []string `json:"entities"`
	LinkedCases []string `json:"linkedCases"`
	Signals     Signals  `json:"signals"`
	Summary     string   `json:"summary"`
}

type overlapRow struct {
	entityID, caseID, city, timeBucket, address, caseType, method string
}

// EvidenceCard builds the evidence summary for the given person ids. It
// only reads.
func (db *DB) EvidenceCard(ctx context.Context, personIDs []string) (*EvidenceCard, error) {
	ids := dedupe(personIDs)
	card := &EvidenceCard{
		Title:       "CaseLink Evidence Card",
		Entities:    ids,
		LinkedCases: []string{},
		Signals: Signals{
			Geospatial: []Claim{},
			Narrative:  []Claim{},
			Social:     []Claim{},
		},
	}
	if len(ids) == 0 {
		card.Summary = summarize(card, 0)
		return card, nil
	}

	overlaps, err := db.overlapsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	card.LinkedCases = linkedCases(overlaps)
	card.Signals.Geospatial = geospatialClaims(ids, overlaps)
	card.Signals.Narrative = narrativeClaims(overlaps)

	social, fences, err := db.socialClaims(ctx, ids)
	if err != nil {
		return nil, err
	}
	card.Signals.Social = social
	card.Summary = summarize(card, fences)
	return card, nil
}

func (db *DB) overlapsFor(ctx context.Context, ids []string) ([]overlapRow, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT eco.entity_id, eco.case_id, eco.city, eco.time_bucket,
		        c.address, c.case_type, c.method_of_entry
		 FROM entity_case_overlap eco
		 JOIN cases c ON eco.case_id = c.case_id
		 WHERE eco.entity_id IN (`+placeholders(len(ids))+`)
		 ORDER BY eco.entity_id, eco.time_bucket, eco.case_id`, toArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying co-presence: %w", err)
	}
	defer rows.Close()

	var out []overlapRow
	for rows.Next() {
		var r overlapRow
		if err := rows.Scan(&r.entityID, &r.caseID, &r.city, &r.timeBucket,
			&r.address, &r.caseType, &r.method); err != nil {
			return nil, fmt.Errorf("scanning co-presence: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) socialClaims(ctx context.Context, ids []string) ([]Claim, int, error) {
	ph := placeholders(len(ids))
	args := append(toArgs(ids), toArgs(ids)...)
	rows, err := db.sql.QueryContext(ctx,
		`SELECT entity_id_1, entity_id_2, relationship_type, weight, confidence, source
		 FROM social_edges
		 WHERE entity_id_1 IN (`+ph+`) OR entity_id_2 IN (`+ph+`)
		 ORDER BY entity_id_1, entity_id_2, relationship_type`, args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying social edges: %w", err)
	}
	defer rows.Close()

	claims := []Claim{}
	fences := 0
	for rows.Next() {
		var a, b, rel, source string
		var weight, confidence float64
		if err := rows.Scan(&a, &b, &rel, &weight, &confidence, &source); err != nil {
			return nil, 0, fmt.Errorf("scanning social edge: %w", err)
		}
		subject, connected := a, b
		if !slices.Contains(ids, a) {
			subject, connected = b, a
		}
		switch rel {
		case RelFenceConnection:
			fences++
			claims = append(claims, Claim{
				Claim: fmt.Sprintf("Entity %s is connected to known fence %s", subject, connected),
				Support: []string{
					"Source: " + source,
					fmt.Sprintf("Confidence: %.0f%%", confidence*100),
				},
			})
		case RelKnownAssociate:
			claims = append(claims, Claim{
				Claim: fmt.Sprintf("Entity %s is a known associate of %s", subject, connected),
				Support: []string{
					"Source: " + source,
					fmt.Sprintf("Relationship weight: %.2f", weight),
				},
			})
		}
	}
	return claims, fences, rows.Err()
}

func linkedCases(overlaps []overlapRow) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range overlaps {
		if !seen[r.caseID] {
			seen[r.caseID] = true
			out = append(out, r.caseID)
		}
	}
	sort.Strings(out)
	return out
}

// geospatialClaims reports every entity seen at two or more case scenes.
func geospatialClaims(ids []string, overlaps []overlapRow) []Claim {
	claims := []Claim{}
	for _, id := range ids {
		var support []string
		for _, r := range overlaps {
			if r.entityID == id {
				support = append(support, fmt.Sprintf("%s: %s at %s", r.caseID, r.city, r.timeBucket))
			}
		}
		if len(support) < 2 {
			continue
		}
		claims = append(claims, Claim{
			Claim:   fmt.Sprintf("Entity %s was present at %d crime scenes", id, len(support)),
			Support: support,
		})
	}
	return claims
}

// narrativeClaims reports methods of entry shared by two or more linked cases.
func narrativeClaims(overlaps []overlapRow) []Claim {
	byMethod := map[string][]overlapRow{}
	seen := map[string]bool{}
	for _, r := range overlaps {
		if r.method == "" || seen[r.caseID] {
			continue
		}
		seen[r.caseID] = true
		byMethod[r.method] = append(byMethod[r.method], r)
	}

	methods := make([]string, 0, len(byMethod))
	for m, rows := range byMethod {
		if len(rows) >= 2 {
			methods = append(methods, m)
		}
	}
	sort.Strings(methods)

	claims := []Claim{}
	for _, m := range methods {
		rows := byMethod[m]
		sort.Slice(rows, func(i, j int) bool { return rows[i].caseID < rows[j].caseID })
		caseIDs := make([]string, len(rows))
		support := make([]string, len(rows))
		for i, r := range rows {
			caseIDs[i] = r.caseID
			support[i] = fmt.Sprintf("%s: %s at %s", r.caseID, r.caseType, r.address)
		}
		claims = append(claims, Claim{
			Claim:   fmt.Sprintf("Cases %s share method of entry: %s", strings.Join(caseIDs, ", "), m),
			Support: support,
		})
	}
	return claims
}

func summarize(card *EvidenceCard, fences int) string {
	var parts []string
	if len(card.Signals.Geospatial) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Geospatial analysis shows %d device(s) were present at %d crime scenes.",
			len(card.Signals.Geospatial), len(card.LinkedCases)))
	}
	if len(card.Signals.Narrative) > 0 {
		parts = append(parts, "Case narrative comparison reveals a shared method of operation across linked cases.")
	}
	if fences > 0 {
		parts = append(parts, fmt.Sprintf(
			"Social network analysis links suspects to %d known fencing operation(s).", fences))
	}
	if len(parts) == 0 {
		return "No linking evidence was found for the selected entities."
	}
	return strings.Join(parts, " ")
}

func dedupe(ids []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == 50 {
			break
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
