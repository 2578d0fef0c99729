package database

import (
	"database/sql"
)

// InsertAssessment inserts an assessment. Returns the ID on success,
// 0 if the report_id already exists.
func (db *DB) InsertAssessment(a *Assessment) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO assessments
		(report_id, title, body, primary_country, countries, sources, formats,
		 themes, languages, date_created, url, filter_reason, file_info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ReportID, a.Title, a.Body, a.PrimaryCountry, a.Countries, a.Sources,
		a.Formats, a.Themes, a.Languages, a.DateCreated, a.URL, a.FilterReason,
		a.FileInfo,
	)
	if err != nil {
		// Duplicate report_id constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

const assessmentColumns = `id, report_id, title, body, primary_country, countries,
	sources, formats, themes, languages, date_created, url, filter_reason,
	file_info, created_at`

// GetAssessmentByID returns a single assessment, or nil if absent.
func (db *DB) GetAssessmentByID(id int64) (*Assessment, error) {
	row := db.conn.QueryRow(
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = ?`, id,
	)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssessmentByReportID returns the assessment for an upstream
// report ID, or nil if absent.
func (db *DB) GetAssessmentByReportID(reportID string) (*Assessment, error) {
	row := db.conn.QueryRow(
		`SELECT `+assessmentColumns+` FROM assessments WHERE report_id = ?`, reportID,
	)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssessments returns assessments newest first. limit <= 0 returns
// everything.
func (db *DB) ListAssessments(limit int) ([]Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssessments(rows)
}

func scanAssessments(rows *sql.Rows) ([]Assessment, error) {
	var assessments []Assessment
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.ReportID, &a.Title, &a.Body, &a.PrimaryCountry,
			&a.Countries, &a.Sources, &a.Formats, &a.Themes, &a.Languages,
			&a.DateCreated, &a.URL, &a.FilterReason, &a.FileInfo, &a.CreatedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func scanAssessment(row *sql.Row) (*Assessment, error) {
	var a Assessment
	if err := row.Scan(&a.ID, &a.ReportID, &a.Title, &a.Body, &a.PrimaryCountry,
		&a.Countries, &a.Sources, &a.Formats, &a.Themes, &a.Languages,
		&a.DateCreated, &a.URL, &a.FilterReason, &a.FileInfo, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
