// Package database persists the fingerprint cache and run manifests in
// SQLite. The cache lets repeated runs skip re-hashing files that have not
// changed; manifests keep an auditable history of what each run did.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"photocons/manifest"
	"photocons/types"
)

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		modified_at TEXT NOT NULL,
		content_hash TEXT,
		average_hash TEXT,
		perceptual_hash TEXT,
		width INTEGER,
		height INTEGER,
		format TEXT,
		size INTEGER,
		capture_time TEXT,
		time_confidence INTEGER,
		UNIQUE(path)
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_path ON fingerprints(path);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_content_hash ON fingerprints(content_hash);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		dest_root TEXT,
		started_at TEXT,
		finished_at TEXT,
		applied INTEGER,
		skipped INTEGER,
		failed INTEGER
	);

	CREATE TABLE IF NOT EXISTS run_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		source_path TEXT,
		dest_path TEXT,
		group_id INTEGER,
		action TEXT,
		status TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_entries_run ON run_entries(run_id);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// LookupFingerprint returns the cached record for a path if the stored
// modification time still matches. A stale or missing row is a cache miss,
// never an error that stops the run.
func LookupFingerprint(db *sql.DB, path string, modTime time.Time) (types.PhotoRecord, bool, error) {
	var record types.PhotoRecord
	var storedModTime, captureTime sql.NullString
	var confidence int

	err := db.QueryRow(`SELECT modified_at, content_hash, average_hash, perceptual_hash,
			width, height, format, size, capture_time, time_confidence
		FROM fingerprints WHERE path = ?`, path).Scan(
		&storedModTime, &record.ContentHash, &record.AverageHash, &record.PerceptualHash,
		&record.Width, &record.Height, &record.Format, &record.FileSize, &captureTime, &confidence)
	if err == sql.ErrNoRows {
		return record, false, nil
	}
	if err != nil {
		return record, false, fmt.Errorf("database error for %s: %v", path, err)
	}

	stored, err := time.Parse(time.RFC3339, storedModTime.String)
	if err != nil || modTime.After(stored) {
		return record, false, nil
	}

	record.SourcePath = path
	record.TimeConfidence = types.TimeConfidence(confidence)
	if captureTime.Valid && captureTime.String != "" {
		if t, err := time.Parse(time.RFC3339, captureTime.String); err == nil {
			record.CaptureTime = &t
		}
	}

	return record, true, nil
}

// StoreFingerprint caches an extracted record. Unreadable records are not
// cached, so a fixed file gets re-examined on the next run.
func StoreFingerprint(db *sql.DB, record types.PhotoRecord, modTime time.Time) error {
	if record.Unreadable {
		return nil
	}

	var captureTime string
	if record.CaptureTime != nil {
		captureTime = record.CaptureTime.Format(time.RFC3339)
	}

	stmt, err := db.Prepare(`
		INSERT OR REPLACE INTO fingerprints (
			path, modified_at, content_hash, average_hash, perceptual_hash,
			width, height, format, size, capture_time, time_confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", record.SourcePath, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		record.SourcePath,
		modTime.Format(time.RFC3339),
		record.ContentHash,
		record.AverageHash,
		record.PerceptualHash,
		record.Width,
		record.Height,
		record.Format,
		record.FileSize,
		captureTime,
		int(record.TimeConfidence),
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %v", record.SourcePath, err)
	}

	return nil
}

// SaveManifest persists a run and its entries.
func SaveManifest(db *sql.DB, m *manifest.RunManifest) error {
	applied, skipped, failed := m.Counts()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO runs
			(run_id, dest_root, started_at, finished_at, applied, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.DestRoot,
		m.StartedAt.Format(time.RFC3339), m.FinishedAt.Format(time.RFC3339),
		applied, skipped, failed)
	if err != nil {
		return fmt.Errorf("cannot store run %s: %v", m.RunID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO run_entries
			(run_id, source_path, dest_path, group_id, action, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare entry statement: %v", err)
	}
	defer stmt.Close()

	for _, e := range m.Entries {
		if _, err := stmt.Exec(m.RunID, e.SourcePath, e.DestPath, e.GroupID,
			string(e.Action), string(e.Status), e.Error); err != nil {
			return fmt.Errorf("cannot store entry for %s: %v", e.SourcePath, err)
		}
	}

	return tx.Commit()
}

// RunStats summarizes a stored run.
type RunStats struct {
	TotalEntries int
	Applied      int
	Skipped      int
	Failed       int
}

// GetRunStats retrieves the stored counts for a run.
func GetRunStats(db *sql.DB, runID string) (*RunStats, error) {
	var stats RunStats

	err := db.QueryRow(`SELECT applied, skipped, failed FROM runs WHERE run_id = ?`, runID).
		Scan(&stats.Applied, &stats.Skipped, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %v", err)
	}
	stats.TotalEntries = stats.Applied + stats.Skipped + stats.Failed

	return &stats, nil
}
