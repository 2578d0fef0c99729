package database

// GetStats counts registry contents across all tables.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{Downloads: make(map[string]int)}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM assessments").Scan(&stats.Assessments); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query("SELECT status, COUNT(*) FROM document_downloads GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Downloads[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM content_extractions").Scan(&stats.Extractions); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM content_chunks").Scan(&stats.Chunks); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM content_chunks WHERE vector_id IS NOT NULL",
	).Scan(&stats.EmbeddedChunks); err != nil {
		return nil, err
	}

	return stats, nil
}
