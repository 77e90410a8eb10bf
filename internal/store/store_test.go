package store

import (
	"context"
	"strings"
	"testing"

	"github.com/soyeahso/caselink/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seededDB(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)
	ds, err := DemoDataset()
	require.NoError(t, err)
	require.NoError(t, db.Seed(context.Background(), ds))
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestOpen_File(t *testing.T) {
	path := t.TempDir() + "/nested/caselink.db"
	db, err := Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())

	var mode string
	require.NoError(t, db.sql.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	require.NoError(t, db.Close())

	// reopening an up-to-date file applies nothing
	db, err = Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, v)
	require.NoError(t, db.Close())
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.migrate(ctx))

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestOpen_ForeignKeysOn(t *testing.T) {
	db := testDB(t)
	var on int
	require.NoError(t, db.sql.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"suspect_rankings", "cases", "entity_case_overlap", "social_edges"} {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

// --- Projection tests ---

func TestTopSuspects(t *testing.T) {
	db := seededDB(t)

	got, err := db.TopSuspects(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "E_0142", got[0].EntityID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, []string{"Nashville", "Memphis", "Atlanta"}, got[0].LinkedCities)
	assert.Equal(t, "E_0077", got[1].EntityID)
}

func TestTopSuspects_Empty(t *testing.T) {
	db := testDB(t)
	got, err := db.TopSuspects(context.Background(), 12)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCounts(t *testing.T) {
	ctx := context.Background()

	c, err := testDB(t).Counts(ctx)
	require.NoError(t, err)
	assert.True(t, c.Empty())

	ds, err := DemoDataset()
	require.NoError(t, err)
	c, err = seededDB(t).Counts(ctx)
	require.NoError(t, err)
	assert.False(t, c.Empty())
	assert.Equal(t, len(ds.Suspects), c.Suspects)
	assert.Equal(t, len(ds.Cases), c.Cases)
	assert.Equal(t, len(ds.Overlaps), c.Overlaps)
	assert.Equal(t, len(ds.SocialEdges), c.SocialEdges)
}

func TestCasesByCity(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	all, err := db.CasesByCity(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 9)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].IncidentTime.Before(all[i-1].IncidentTime), "cases must be in incident order")
	}

	nash, err := db.CasesByCity(ctx, "nashville")
	require.NoError(t, err)
	require.Len(t, nash, 4)
	assert.Equal(t, "CASE_TN_001", nash[0].CaseID)
	assert.Equal(t, "rear window", nash[0].MethodOfEntry)

	none, err := db.CasesByCity(ctx, "Chattanooga")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetCase(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	c, err := db.GetCase(ctx, "CASE_TN_005")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Memphis", c.City)
	assert.Equal(t, "open", c.Status)

	missing, err := db.GetCase(ctx, "CASE_XX_999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// --- Evidence card tests ---

func TestEvidenceCard(t *testing.T) {
	db := seededDB(t)

	card, err := db.EvidenceCard(context.Background(), []string{"E_0142", "E_0077", "E_0142", " "})
	require.NoError(t, err)

	assert.Equal(t, "CaseLink Evidence Card", card.Title)
	assert.Equal(t, []string{"E_0142", "E_0077"}, card.Entities)
	assert.Equal(t, []string{"CASE_GA_002", "CASE_TN_001", "CASE_TN_005", "CASE_TN_006", "CASE_TN_007"}, card.LinkedCases)

	require.Len(t, card.Signals.Geospatial, 2)
	assert.Equal(t, "Entity E_0142 was present at 4 crime scenes", card.Signals.Geospatial[0].Claim)
	assert.Contains(t, card.Signals.Geospatial[0].Support, "CASE_TN_005: Memphis at 2025-11-03T02:00")

	require.Len(t, card.Signals.Narrative, 1)
	assert.Equal(t, "Cases CASE_GA_002, CASE_TN_001, CASE_TN_005, CASE_TN_007 share method of entry: rear window",
		card.Signals.Narrative[0].Claim)

	require.Len(t, card.Signals.Social, 2)
	claims := []string{card.Signals.Social[0].Claim, card.Signals.Social[1].Claim}
	assert.Contains(t, claims, "Entity E_0142 is a known associate of E_0077")
	assert.Contains(t, claims, "Entity E_0142 is connected to known fence F_0901")

	assert.True(t, strings.HasPrefix(card.Summary, "Geospatial analysis shows 2 device(s) were present at 5 crime scenes."))
	assert.Contains(t, card.Summary, "1 known fencing operation(s)")
}

func TestEvidenceCard_SocialSubjectOnSecondEndpoint(t *testing.T) {
	db := seededDB(t)

	card, err := db.EvidenceCard(context.Background(), []string{"E_0509"})
	require.NoError(t, err)
	require.Len(t, card.Signals.Social, 1)
	assert.Equal(t, "Entity E_0509 is a known associate of E_0311", card.Signals.Social[0].Claim)
	assert.Equal(t, []string{"Source: phone records", "Relationship weight: 0.35"}, card.Signals.Social[0].Support)
	assert.Empty(t, card.Signals.Geospatial)
}

func TestEvidenceCard_NoEvidence(t *testing.T) {
	db := seededDB(t)

	card, err := db.EvidenceCard(context.Background(), []string{"E_UNKNOWN"})
	require.NoError(t, err)
	assert.Empty(t, card.LinkedCases)
	assert.Empty(t, card.Signals.Geospatial)
	assert.Empty(t, card.Signals.Social)
	assert.Equal(t, "No linking evidence was found for the selected entities.", card.Summary)

	empty, err := db.EvidenceCard(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Entities)
}

// --- Seed tests ---

func TestLoadDataset(t *testing.T) {
	doc := `
suspects:
  - entityId: E_1
    rank: 1
    totalScore: 0.5
    linkedCases: [CASE_TN_001]
cases:
  - caseId: CASE_TN_001
    city: Nashville
    incidentTime: 2025-01-01T00:00:00Z
`
	ds, err := LoadDataset(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, ds.Suspects, 1)
	require.Len(t, ds.Cases, 1)
	assert.Equal(t, 2025, ds.Cases[0].IncidentTime.Year())

	_, err = LoadDataset(strings.NewReader("cases:\n  - caseId: X\n    unknownField: 1\n"))
	assert.Error(t, err)
}

func TestSeed_Replaces(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	ds, err := LoadDataset(strings.NewReader(`
cases:
  - caseId: CASE_GA_100
    city: Atlanta
    incidentTime: 2025-02-01T00:00:00Z
`))
	require.NoError(t, err)
	require.NoError(t, db.Seed(ctx, ds))

	all, err := db.CasesByCity(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "CASE_GA_100", all[0].CaseID)

	suspects, err := db.TopSuspects(ctx, 12)
	require.NoError(t, err)
	assert.Empty(t, suspects)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b,,"))
	assert.Equal(t, "a,b", joinList([]string{"a", "b"}))
}
