package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matsen/cvmerge/internal/conflict"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection. The database is a cache of the JSONL
// history and can always be rebuilt from it.
type DB struct {
	db *sql.DB
}

// selectMergeFields contains the standard field list for SELECT queries.
const selectMergeFields = `id, merged_at, source, strategy, total_conflicts,
	accepted, kept, skipped, stats_json, resolutions_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS merges (
			id TEXT PRIMARY KEY,
			merged_at INTEGER NOT NULL,
			source TEXT NOT NULL,
			strategy TEXT NOT NULL,
			total_conflicts INTEGER NOT NULL,
			accepted INTEGER NOT NULL,
			kept INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			stats_json TEXT NOT NULL,
			resolutions_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_merges_merged_at ON merges(merged_at);

		-- One row per explicit decision, for "when did I last accept X" queries
		CREATE TABLE IF NOT EXISTS decisions (
			merge_id TEXT NOT NULL REFERENCES merges(id),
			conflict_id TEXT NOT NULL,
			resolution TEXT NOT NULL,
			PRIMARY KEY (merge_id, conflict_id)
		);

		CREATE INDEX IF NOT EXISTS idx_decisions_conflict ON decisions(conflict_id);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a history file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	entries, err := ReadHistory(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM decisions"); err != nil {
		return 0, fmt.Errorf("clearing decisions table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM merges"); err != nil {
		return 0, fmt.Errorf("clearing merges table: %w", err)
	}

	for _, e := range entries {
		if err := insertMerge(tx, e); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(entries), nil
}

// InsertMerge adds a single entry, replacing any entry with the same id.
func (d *DB) InsertMerge(e HistoryEntry) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM decisions WHERE merge_id = ?", e.ID); err != nil {
		return fmt.Errorf("clearing decisions for %s: %w", e.ID, err)
	}
	if err := insertMerge(tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMerge(tx *sql.Tx, e HistoryEntry) error {
	statsJSON, err := json.Marshal(e.Stats)
	if err != nil {
		return fmt.Errorf("marshaling stats for %s: %w", e.ID, err)
	}
	var resJSON []byte
	if len(e.Resolutions) > 0 {
		resJSON, err = json.Marshal(e.Resolutions)
		if err != nil {
			return fmt.Errorf("marshaling resolutions for %s: %w", e.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO merges (
			id, merged_at, source, strategy, total_conflicts,
			accepted, kept, skipped, stats_json, resolutions_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.MergedAt.UnixNano(), e.Source, e.Strategy, e.TotalConflicts,
		e.Summary.Accepted, e.Summary.Kept, e.Summary.Skipped,
		string(statsJSON), nullableString(resJSON))
	if err != nil {
		return fmt.Errorf("inserting merge %s: %w", e.ID, err)
	}

	for id, res := range e.Resolutions {
		if _, err := tx.Exec(`INSERT INTO decisions (merge_id, conflict_id, resolution) VALUES (?, ?, ?)`,
			e.ID, id, string(res)); err != nil {
			return fmt.Errorf("inserting decision %s for %s: %w", id, e.ID, err)
		}
	}
	return nil
}

// GetMerge retrieves a merge by id. Returns nil if not found.
func (d *DB) GetMerge(id string) (*HistoryEntry, error) {
	row := d.db.QueryRow(`SELECT `+selectMergeFields+` FROM merges WHERE id = ?`, id)
	return scanMerge(row)
}

// ListMerges returns merges newest first, optionally limited.
func (d *DB) ListMerges(limit int) ([]HistoryEntry, error) {
	query := `SELECT ` + selectMergeFields + ` FROM merges ORDER BY merged_at DESC, id`
	var args []interface{}

	if limit > 0 {
		query += " LIMIT ?"
		args = []interface{}{limit}
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing merges: %w", err)
	}
	defer rows.Close()

	return scanMerges(rows)
}

// Decision is one recorded resolution of a conflict.
type Decision struct {
	MergeID    string              `json:"merge_id"`
	MergedAt   time.Time           `json:"merged_at"`
	Resolution conflict.Resolution `json:"resolution"`
}

// DecisionsFor returns every explicit decision recorded for a conflict id,
// newest first.
func (d *DB) DecisionsFor(conflictID string) ([]Decision, error) {
	rows, err := d.db.Query(`
		SELECT d.merge_id, m.merged_at, d.resolution
		FROM decisions d JOIN merges m ON m.id = d.merge_id
		WHERE d.conflict_id = ?
		ORDER BY m.merged_at DESC
	`, conflictID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var dec Decision
		var mergedAt int64
		var res string
		if err := rows.Scan(&dec.MergeID, &mergedAt, &res); err != nil {
			return nil, err
		}
		dec.MergedAt = time.Unix(0, mergedAt).UTC()
		dec.Resolution = conflict.Resolution(res)
		out = append(out, dec)
	}
	return out, rows.Err()
}

// Count returns the total number of merges.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM merges").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMerge(s scanner) (*HistoryEntry, error) {
	var e HistoryEntry
	var mergedAt int64
	var statsJSON string
	var resJSON sql.NullString

	err := s.Scan(
		&e.ID, &mergedAt, &e.Source, &e.Strategy, &e.TotalConflicts,
		&e.Summary.Accepted, &e.Summary.Kept, &e.Summary.Skipped,
		&statsJSON, &resJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	e.MergedAt = time.Unix(0, mergedAt).UTC()
	if err := json.Unmarshal([]byte(statsJSON), &e.Stats); err != nil {
		return nil, fmt.Errorf("parsing stats JSON for %s: %w", e.ID, err)
	}
	if resJSON.Valid && resJSON.String != "" {
		if err := json.Unmarshal([]byte(resJSON.String), &e.Resolutions); err != nil {
			return nil, fmt.Errorf("parsing resolutions JSON for %s: %w", e.ID, err)
		}
	}

	return &e, nil
}

func scanMerges(rows *sql.Rows) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	for rows.Next() {
		e, err := scanMerge(rows)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, rows.Err()
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
