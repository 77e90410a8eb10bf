package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create suspect rankings and cases",
		SQL: `
			CREATE TABLE suspect_rankings (
				entity_id                TEXT PRIMARY KEY,
				rank                     INTEGER NOT NULL,
				total_score              REAL NOT NULL DEFAULT 0,
				recurrence_score         REAL NOT NULL DEFAULT 0,
				cross_jurisdiction_score REAL NOT NULL DEFAULT 0,
				network_score            REAL NOT NULL DEFAULT 0,
				unique_cases             INTEGER NOT NULL DEFAULT 0,
				states_count             INTEGER NOT NULL DEFAULT 0,
				linked_cases             TEXT NOT NULL DEFAULT '',
				linked_cities            TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_suspect_rankings_rank ON suspect_rankings (rank);

			CREATE TABLE cases (
				case_id         TEXT PRIMARY KEY,
				case_type       TEXT NOT NULL DEFAULT '',
				city            TEXT NOT NULL DEFAULT '',
				state           TEXT NOT NULL DEFAULT '',
				address         TEXT NOT NULL DEFAULT '',
				incident_time   TEXT NOT NULL,
				method_of_entry TEXT NOT NULL DEFAULT '',
				estimated_loss  REAL NOT NULL DEFAULT 0,
				status          TEXT NOT NULL DEFAULT 'open',
				narrative       TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_cases_city ON cases (city, incident_time);
		`,
	},
	{
		Version: 2,
		Name:    "create co-presence and social edges",
		SQL: `
			CREATE TABLE entity_case_overlap (
				entity_id   TEXT NOT NULL,
				case_id     TEXT NOT NULL REFERENCES cases(case_id) ON DELETE CASCADE,
				city        TEXT NOT NULL DEFAULT '',
				h3_cell     TEXT NOT NULL DEFAULT '',
				time_bucket TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (entity_id, case_id)
			);

			CREATE INDEX idx_overlap_case ON entity_case_overlap (case_id);

			CREATE TABLE social_edges (
				entity_id_1       TEXT NOT NULL,
				entity_id_2       TEXT NOT NULL,
				relationship_type TEXT NOT NULL,
				weight            REAL NOT NULL DEFAULT 0,
				confidence        REAL NOT NULL DEFAULT 0,
				source            TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (entity_id_1, entity_id_2, relationship_type)
			);

			CREATE INDEX idx_social_edges_2 ON social_edges (entity_id_2);
		`,
	},
}
