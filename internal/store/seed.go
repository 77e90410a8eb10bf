package store

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoDataset []byte

// Overlap places an entity's device at a case scene.
type Overlap struct {
	EntityID   string `yaml:"entityId"`
	CaseID     string `yaml:"caseId"`
	City       string `yaml:"city"`
	H3Cell     string `yaml:"h3Cell"`
	TimeBucket string `yaml:"timeBucket"`
}

// SocialEdge links two entities.
type SocialEdge struct {
	EntityID1        string  `yaml:"entityId1"`
	EntityID2        string  `yaml:"entityId2"`
	RelationshipType string  `yaml:"relationshipType"`
	Weight           float64 `yaml:"weight"`
	Confidence       float64 `yaml:"confidence"`
	Source           string  `yaml:"source"`
}

// Dataset is the YAML document accepted by Seed.
type Dataset struct {
	Suspects    []Suspect    `yaml:"suspects"`
	Cases       []Case       `yaml:"cases"`
	Overlaps    []Overlap    `yaml:"overlaps"`
	SocialEdges []SocialEdge `yaml:"socialEdges"`
}

// LoadDataset decodes a YAML dataset.
func LoadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return &ds, nil
}

// DemoDataset returns the bundled demo projections.
func DemoDataset() (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(demoDataset, &ds); err != nil {
		return nil, fmt.Errorf("decoding demo dataset: %w", err)
	}
	return &ds, nil
}

// Seed replaces all projection tables with the dataset in one transaction.
func (db *DB) Seed(ctx context.Context, ds *Dataset) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"entity_case_overlap", "social_edges", "suspect_rankings", "cases"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, c := range ds.Cases {
		status := c.Status
		if status == "" {
			status = "open"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cases (case_id, case_type, city, state, address, incident_time,
			                    method_of_entry, estimated_loss, status, narrative)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.CaseID, c.CaseType, c.City, c.State, c.Address, c.IncidentTime.UTC().Format(time.RFC3339),
			c.MethodOfEntry, c.EstimatedLoss, status, c.Narrative,
		); err != nil {
			return fmt.Errorf("inserting case %s: %w", c.CaseID, err)
		}
	}

	for _, s := range ds.Suspects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO suspect_rankings (entity_id, rank, total_score, recurrence_score,
			                               cross_jurisdiction_score, network_score, unique_cases,
			                               states_count, linked_cases, linked_cities)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.EntityID, s.Rank, s.TotalScore, s.RecurrenceScore, s.CrossJurisdictionScore,
			s.NetworkScore, s.UniqueCases, s.StatesCount, joinList(s.LinkedCases), joinList(s.LinkedCities),
		); err != nil {
			return fmt.Errorf("inserting suspect %s: %w", s.EntityID, err)
		}
	}

	for _, o := range ds.Overlaps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_case_overlap (entity_id, case_id, city, h3_cell, time_bucket)
			 VALUES (?, ?, ?, ?, ?)`,
			o.EntityID, o.CaseID, o.City, o.H3Cell, o.TimeBucket,
		); err != nil {
			return fmt.Errorf("inserting overlap %s/%s: %w", o.EntityID, o.CaseID, err)
		}
	}

	for _, e := range ds.SocialEdges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO social_edges (entity_id_1, entity_id_2, relationship_type, weight, confidence, source)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.EntityID1, e.EntityID2, e.RelationshipType, e.Weight, e.Confidence, e.Source,
		); err != nil {
			return fmt.Errorf("inserting social edge %s-%s: %w", e.EntityID1, e.EntityID2, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	db.log.Info().
		Int("cases", len(ds.Cases)).
		Int("suspects", len(ds.Suspects)).
		Int("overlaps", len(ds.Overlaps)).
		Int("socialEdges", len(ds.SocialEdges)).
		Msg("seeded projections")
	return nil
}
