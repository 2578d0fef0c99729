package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS assessments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    body TEXT,
    primary_country TEXT,
    countries TEXT,
    sources TEXT,
    formats TEXT,
    themes TEXT,
    languages TEXT,
    date_created TEXT,
    url TEXT,
    filter_reason TEXT,
    file_info TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS document_downloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    assessment_id INTEGER NOT NULL REFERENCES assessments(id),
    url TEXT NOT NULL,
    filename TEXT NOT NULL,
    local_path TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    error TEXT,
    downloaded_at TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE(assessment_id, url)
);

CREATE TABLE IF NOT EXISTS content_extractions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    download_id INTEGER UNIQUE NOT NULL REFERENCES document_downloads(id),
    text TEXT,
    page_count INTEGER DEFAULT 0,
    confidence REAL DEFAULT 0,
    word_count INTEGER DEFAULT 0,
    method TEXT,
    metadata TEXT,
    extracted_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS content_chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    extraction_id INTEGER NOT NULL REFERENCES content_extractions(id),
    chunk_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    char_count INTEGER DEFAULT 0,
    word_count INTEGER DEFAULT 0,
    vector_id TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE(extraction_id, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_assessments_report ON assessments(report_id);
CREATE INDEX IF NOT EXISTS idx_assessments_primary_country ON assessments(primary_country);
CREATE INDEX IF NOT EXISTS idx_downloads_assessment ON document_downloads(assessment_id);
CREATE INDEX IF NOT EXISTS idx_downloads_status ON document_downloads(status);
CREATE INDEX IF NOT EXISTS idx_chunks_extraction ON content_chunks(extraction_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
