package database

import "database/sql"

// UpsertExtraction stores extraction results for a download, replacing
// any earlier attempt. Returns the extraction ID.
func (db *DB) UpsertExtraction(e *Extraction) (int64, error) {
	_, err := db.conn.Exec(
		`INSERT INTO content_extractions
		(download_id, text, page_count, confidence, word_count, method, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(download_id) DO UPDATE SET
			text = excluded.text,
			page_count = excluded.page_count,
			confidence = excluded.confidence,
			word_count = excluded.word_count,
			method = excluded.method,
			metadata = excluded.metadata,
			extracted_at = datetime('now')`,
		e.DownloadID, e.Text, e.PageCount, e.Confidence, e.WordCount, e.Method, e.Metadata,
	)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.conn.QueryRow(
		"SELECT id FROM content_extractions WHERE download_id = ?", e.DownloadID,
	).Scan(&id)
	return id, err
}

// GetExtractionByDownload returns the extraction for a download, or
// nil if the download has not been extracted.
func (db *DB) GetExtractionByDownload(downloadID int64) (*Extraction, error) {
	row := db.conn.QueryRow(
		`SELECT id, download_id, text, page_count, confidence, word_count, method,
			metadata, extracted_at
		FROM content_extractions WHERE download_id = ?`, downloadID,
	)

	var e Extraction
	err := row.Scan(&e.ID, &e.DownloadID, &e.Text, &e.PageCount, &e.Confidence,
		&e.WordCount, &e.Method, &e.Metadata, &e.ExtractedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ReplaceChunks deletes existing chunks of an extraction and inserts
// the new set in one transaction. Returns the stored rows with IDs.
func (db *DB) ReplaceChunks(extractionID int64, chunks []ChunkRow) ([]ChunkRow, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM content_chunks WHERE extraction_id = ?", extractionID); err != nil {
		return nil, err
	}

	stored := make([]ChunkRow, 0, len(chunks))
	for _, c := range chunks {
		result, err := tx.Exec(
			`INSERT INTO content_chunks
			(extraction_id, chunk_id, text, char_count, word_count, vector_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			extractionID, c.ChunkID, c.Text, c.CharCount, c.WordCount, c.VectorID,
		)
		if err != nil {
			return nil, err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		c.ID = id
		c.ExtractionID = extractionID
		stored = append(stored, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// SetChunkVector records the vector index ID for a stored chunk.
func (db *DB) SetChunkVector(chunkRowID int64, vectorID string) error {
	_, err := db.conn.Exec(
		"UPDATE content_chunks SET vector_id = ? WHERE id = ?", vectorID, chunkRowID,
	)
	return err
}

// GetChunksForExtraction returns the chunks of an extraction in
// document order.
func (db *DB) GetChunksForExtraction(extractionID int64) ([]ChunkRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, extraction_id, chunk_id, text, char_count, word_count, vector_id, created_at
		FROM content_chunks WHERE extraction_id = ? ORDER BY chunk_id`, extractionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []ChunkRow
	for rows.Next() {
		var c ChunkRow
		if err := rows.Scan(&c.ID, &c.ExtractionID, &c.ChunkID, &c.Text,
			&c.CharCount, &c.WordCount, &c.VectorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
