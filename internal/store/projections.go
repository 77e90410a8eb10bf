package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Suspect is one row of the suspect ranking projection.
type Suspect struct {
	EntityID               string   `json:"entityId" yaml:"entityId"`
	Rank                   int      `json:"rank" yaml:"rank"`
	TotalScore             float64  `json:"totalScore" yaml:"totalScore"`
	RecurrenceScore        float64  `json:"recurrenceScore,omitempty" yaml:"recurrenceScore"`
	CrossJurisdictionScore float64  `json:"crossJurisdictionScore,omitempty" yaml:"crossJurisdictionScore"`
	NetworkScore           float64  `json:"networkScore,omitempty" yaml:"networkScore"`
	UniqueCases            int      `json:"uniqueCases" yaml:"uniqueCases"`
	StatesCount            int      `json:"statesCount,omitempty" yaml:"statesCount"`
	LinkedCases            []string `json:"linkedCases,omitempty" yaml:"linkedCases"`
	LinkedCities           []string `json:"linkedCities,omitempty" yaml:"linkedCities"`
}

// Case is one row of the case projection.
type Case struct {
	CaseID        string    `json:"caseId" yaml:"caseId"`
	CaseType      string    `json:"caseType,omitempty" yaml:"caseType"`
	City          string    `json:"city" yaml:"city"`
	State         string    `json:"state,omitempty" yaml:"state"`
	Address       string    `json:"address,omitempty" yaml:"address"`
	IncidentTime  time.Time `json:"incidentTime" yaml:"incidentTime"`
	MethodOfEntry string    `json:"methodOfEntry,omitempty" yaml:"methodOfEntry"`
	EstimatedLoss float64   `json:"estimatedLoss,omitempty" yaml:"estimatedLoss"`
	Status        string    `json:"status,omitempty" yaml:"status"`
	Narrative     string    `json:"-" yaml:"narrative"`
}

// TopSuspects returns the highest-ranked entities, best first.
func (db *DB) TopSuspects(ctx context.Context, limit int) ([]Suspect, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT entity_id, rank, total_score, recurrence_score, cross_jurisdiction_score,
		        network_score, unique_cases, states_count, linked_cases, linked_cities
		 FROM suspect_rankings
		 ORDER BY rank, total_score DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying suspects: %w", err)
	}
	defer rows.Close()

	var out []Suspect
	for rows.Next() {
		var s Suspect
		var cases, cities string
		if err := rows.Scan(&s.EntityID, &s.Rank, &s.TotalScore, &s.RecurrenceScore,
			&s.CrossJurisdictionScore, &s.NetworkScore, &s.UniqueCases, &s.StatesCount,
			&cases, &cities); err != nil {
			return nil, fmt.Errorf("scanning suspect: %w", err)
		}
		s.LinkedCases = splitList(cases)
		s.LinkedCities = splitList(cities)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CasesByCity returns cases in incident order. An empty city matches all
// cases; otherwise the comparison ignores case.
func (db *DB) CasesByCity(ctx context.Context, city string) ([]Case, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT case_id, case_type, city, state, address, incident_time,
		        method_of_entry, estimated_loss, status, narrative
		 FROM cases
		 WHERE ? = '' OR city = ? COLLATE NOCASE
		 ORDER BY incident_time, case_id`, city, city,
	)
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCase returns a single case, or nil if it does not exist.
func (db *DB) GetCase(ctx context.Context, caseID string) (*Case, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT case_id, case_type, city, state, address, incident_time,
		        method_of_entry, estimated_loss, status, narrative
		 FROM cases WHERE case_id = ?`, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying case %s: %w", caseID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	c, err := scanCase(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (Case, error) {
	var c Case
	var incident string
	if err := row.Scan(&c.CaseID, &c.CaseType, &c.City, &c.State, &c.Address, &incident,
		&c.MethodOfEntry, &c.EstimatedLoss, &c.Status, &c.Narrative); err != nil {
		return c, fmt.Errorf("scanning case: %w", err)
	}
	t, err := time.Parse(time.RFC3339, incident)
	if err != nil {
		return c, fmt.Errorf("case %s: bad incident time %q: %w", c.CaseID, incident, err)
	}
	c.IncidentTime = t
	return c, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

// Counts reports the number of rows in each projection table.
type Counts struct {
	Suspects    int `json:"suspects"`
	Cases       int `json:"cases"`
	Overlaps    int `json:"overlaps"`
	SocialEdges int `json:"socialEdges"`
}

// Empty reports whether no projection holds data.
func (c Counts) Empty() bool {
	return c.Suspects == 0 && c.Cases == 0 && c.Overlaps == 0 && c.SocialEdges == 0
}

// Counts returns the row count of every projection table.
func (db *DB) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"suspect_rankings", &c.Suspects},
		{"cases", &c.Cases},
		{"entity_case_overlap", &c.Overlaps},
		{"social_edges", &c.SocialEdges},
	}
	for _, t := range targets {
		if err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("counting %s: %w", t.table, err)
		}
	}
	return c, nil
}
