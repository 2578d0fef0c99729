package database

import "database/sql"

// InsertDownload registers an attachment for later fetching. Returns
// the ID on success, 0 if the (assessment, url) pair already exists.
func (db *DB) InsertDownload(assessmentID int64, url, filename string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO document_downloads (assessment_id, url, filename, status)
		VALUES (?, ?, ?, ?)`,
		assessmentID, url, filename, DownloadPending,
	)
	if err != nil {
		// Duplicate (assessment_id, url) constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

const downloadColumns = `id, assessment_id, url, filename, local_path, status,
	error, downloaded_at, created_at`

// GetDownloadByID returns a single download, or nil if absent.
func (db *DB) GetDownloadByID(id int64) (*Download, error) {
	row := db.conn.QueryRow(
		`SELECT `+downloadColumns+` FROM document_downloads WHERE id = ?`, id,
	)
	d, err := scanDownload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetPendingDownloads returns downloads not yet fetched, optionally
// restricted to one assessment.
func (db *DB) GetPendingDownloads(assessmentID *int64) ([]Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM document_downloads WHERE status = ?`
	args := []any{DownloadPending}
	if assessmentID != nil {
		query += " AND assessment_id = ?"
		args = append(args, *assessmentID)
	}
	query += " ORDER BY id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDownloads(rows)
}

// GetDownloadsNeedingExtraction returns completed downloads that have
// no extraction row yet.
func (db *DB) GetDownloadsNeedingExtraction() ([]Download, error) {
	rows, err := db.conn.Query(
		`SELECT d.id, d.assessment_id, d.url, d.filename, d.local_path, d.status,
			d.error, d.downloaded_at, d.created_at
		FROM document_downloads d
		LEFT JOIN content_extractions e ON d.id = e.download_id
		WHERE d.status = ? AND e.download_id IS NULL
		ORDER BY d.id`, DownloadCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDownloads(rows)
}

// MarkDownloadCompleted records where the fetched file was stored.
func (db *DB) MarkDownloadCompleted(id int64, localPath string) error {
	_, err := db.conn.Exec(
		`UPDATE document_downloads
		SET status = ?, local_path = ?, error = NULL, downloaded_at = datetime('now')
		WHERE id = ?`,
		DownloadCompleted, localPath, id,
	)
	return err
}

// MarkDownloadFailed records a fetch failure.
func (db *DB) MarkDownloadFailed(id int64, errMsg string) error {
	_, err := db.conn.Exec(
		"UPDATE document_downloads SET status = ?, error = ? WHERE id = ?",
		DownloadFailed, errMsg, id,
	)
	return err
}

// MarkDownloadSkipped records that the attachment format is not
// supported and will not be fetched.
func (db *DB) MarkDownloadSkipped(id int64, reason string) error {
	_, err := db.conn.Exec(
		"UPDATE document_downloads SET status = ?, error = ? WHERE id = ?",
		DownloadSkipped, reason, id,
	)
	return err
}

func scanDownloads(rows *sql.Rows) ([]Download, error) {
	var downloads []Download
	for rows.Next() {
		var d Download
		if err := rows.Scan(&d.ID, &d.AssessmentID, &d.URL, &d.Filename, &d.LocalPath,
			&d.Status, &d.Error, &d.DownloadedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

func scanDownload(row *sql.Row) (*Download, error) {
	var d Download
	if err := row.Scan(&d.ID, &d.AssessmentID, &d.URL, &d.Filename, &d.LocalPath,
		&d.Status, &d.Error, &d.DownloadedAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
