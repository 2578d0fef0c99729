package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func insertTestAssessment(t *testing.T, db *DB, reportID string) int64 {
	t.Helper()
	id, err := db.InsertAssessment(&Assessment{
		ReportID:       reportID,
		Title:          "Sudan: Humanitarian Snapshot",
		PrimaryCountry: ptr("Sudan"),
		Countries:      ptr("Sudan; Chad"),
		FilterReason:   ptr("clean_primary"),
	})
	if err != nil {
		t.Fatalf("insert assessment: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero assessment ID")
	}
	return id
}

func TestInsertAssessment(t *testing.T) {
	db := openTestDB(t)
	id := insertTestAssessment(t, db, "rw-100")

	a, err := db.GetAssessmentByID(id)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if a == nil || a.ReportID != "rw-100" {
		t.Fatalf("unexpected assessment %+v", a)
	}
	if a.PrimaryCountry == nil || *a.PrimaryCountry != "Sudan" {
		t.Errorf("primary country not stored: %+v", a)
	}
	if a.FilterReason == nil || *a.FilterReason != "clean_primary" {
		t.Errorf("filter reason not stored: %+v", a)
	}
}

func TestInsertDuplicateAssessment(t *testing.T) {
	db := openTestDB(t)
	insertTestAssessment(t, db, "rw-dup")

	id, err := db.InsertAssessment(&Assessment{ReportID: "rw-dup", Title: "Duplicate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Error("expected 0 for duplicate report_id")
	}
}

func TestGetAssessmentByReportID(t *testing.T) {
	db := openTestDB(t)
	insertTestAssessment(t, db, "rw-200")

	a, err := db.GetAssessmentByReportID("rw-200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected assessment")
	}

	missing, err := db.GetAssessmentByReportID("rw-missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing report_id")
	}
}

func TestListAssessments(t *testing.T) {
	db := openTestDB(t)
	insertTestAssessment(t, db, "rw-1")
	insertTestAssessment(t, db, "rw-2")
	insertTestAssessment(t, db, "rw-3")

	all, err := db.ListAssessments(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 assessments, got %d", len(all))
	}

	limited, err := db.ListAssessments(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 assessments, got %d", len(limited))
	}
}

func TestDownloadLifecycle(t *testing.T) {
	db := openTestDB(t)
	aid := insertTestAssessment(t, db, "rw-300")

	did, err := db.InsertDownload(aid, "https://example.org/report.pdf", "report.pdf")
	if err != nil {
		t.Fatalf("insert download: %v", err)
	}
	if did == 0 {
		t.Fatal("expected non-zero download ID")
	}

	// duplicate attachment is a no-op
	dup, err := db.InsertDownload(aid, "https://example.org/report.pdf", "report.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup != 0 {
		t.Error("expected 0 for duplicate download")
	}

	pending, err := db.GetPendingDownloads(nil)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != DownloadPending {
		t.Fatalf("unexpected pending set %+v", pending)
	}

	if err := db.MarkDownloadCompleted(did, "/data/documents/report.pdf"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	d, err := db.GetDownloadByID(did)
	if err != nil {
		t.Fatalf("get download: %v", err)
	}
	if d.Status != DownloadCompleted || d.LocalPath == nil || d.DownloadedAt == nil {
		t.Errorf("completion not recorded: %+v", d)
	}

	pending, err = db.GetPendingDownloads(&aid)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending downloads, got %d", len(pending))
	}
}

func TestMarkDownloadFailed(t *testing.T) {
	db := openTestDB(t)
	aid := insertTestAssessment(t, db, "rw-301")
	did, _ := db.InsertDownload(aid, "https://example.org/broken.pdf", "broken.pdf")

	if err := db.MarkDownloadFailed(did, "http 404"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	d, _ := db.GetDownloadByID(did)
	if d.Status != DownloadFailed || d.Error == nil || *d.Error != "http 404" {
		t.Errorf("failure not recorded: %+v", d)
	}
}

func TestExtractionAndChunks(t *testing.T) {
	db := openTestDB(t)
	aid := insertTestAssessment(t, db, "rw-400")
	did, _ := db.InsertDownload(aid, "https://example.org/report.pdf", "report.pdf")
	db.MarkDownloadCompleted(did, "/data/documents/report.pdf")

	needing, err := db.GetDownloadsNeedingExtraction()
	if err != nil {
		t.Fatalf("needing extraction: %v", err)
	}
	if len(needing) != 1 {
		t.Fatalf("expected 1 download needing extraction, got %d", len(needing))
	}

	eid, err := db.UpsertExtraction(&Extraction{
		DownloadID: did,
		Text:       ptr("Extracted text about Darfur."),
		PageCount:  3,
		Confidence: 0.95,
		WordCount:  4,
		Method:     ptr("pdf_library"),
	})
	if err != nil {
		t.Fatalf("upsert extraction: %v", err)
	}
	if eid == 0 {
		t.Fatal("expected extraction ID")
	}

	needing, _ = db.GetDownloadsNeedingExtraction()
	if len(needing) != 0 {
		t.Errorf("extracted download still reported as needing extraction")
	}

	// re-running extraction replaces, not duplicates
	eid2, err := db.UpsertExtraction(&Extraction{
		DownloadID: did,
		Text:       ptr("Better text."),
		Confidence: 0.99,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if eid2 != eid {
		t.Errorf("expected same extraction row, got %d and %d", eid, eid2)
	}
	e, _ := db.GetExtractionByDownload(did)
	if e == nil || *e.Text != "Better text." {
		t.Errorf("upsert did not replace text: %+v", e)
	}

	stored, err := db.ReplaceChunks(eid, []ChunkRow{
		{ChunkID: 0, Text: "first chunk", CharCount: 11, WordCount: 2},
		{ChunkID: 1, Text: "second chunk", CharCount: 12, WordCount: 2},
	})
	if err != nil {
		t.Fatalf("replace chunks: %v", err)
	}
	if len(stored) != 2 || stored[0].ID == 0 {
		t.Fatalf("chunk IDs not returned: %+v", stored)
	}

	if err := db.SetChunkVector(stored[0].ID, "vec-123"); err != nil {
		t.Fatalf("set vector: %v", err)
	}
	chunks, err := db.GetChunksForExtraction(eid)
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].VectorID == nil || *chunks[0].VectorID != "vec-123" {
		t.Errorf("vector id not recorded: %+v", chunks[0])
	}
	if chunks[1].VectorID != nil {
		t.Errorf("unexpected vector id on second chunk")
	}

	// replacing again clears the old set
	stored, err = db.ReplaceChunks(eid, []ChunkRow{{ChunkID: 0, Text: "only chunk"}})
	if err != nil {
		t.Fatalf("replace chunks again: %v", err)
	}
	chunks, _ = db.GetChunksForExtraction(eid)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk after replace, got %d", len(chunks))
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	aid := insertTestAssessment(t, db, "rw-500")
	did, _ := db.InsertDownload(aid, "https://example.org/a.pdf", "a.pdf")
	db.InsertDownload(aid, "https://example.org/b.pdf", "b.pdf")
	db.MarkDownloadCompleted(did, "/tmp/a.pdf")

	eid, _ := db.UpsertExtraction(&Extraction{DownloadID: did, Text: ptr("text")})
	stored, _ := db.ReplaceChunks(eid, []ChunkRow{
		{ChunkID: 0, Text: "c0"},
		{ChunkID: 1, Text: "c1"},
	})
	db.SetChunkVector(stored[0].ID, "vec-1")

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Assessments != 1 {
		t.Errorf("assessments = %d", stats.Assessments)
	}
	if stats.Downloads[DownloadCompleted] != 1 || stats.Downloads[DownloadPending] != 1 {
		t.Errorf("download counts %v", stats.Downloads)
	}
	if stats.Extractions != 1 || stats.Chunks != 2 || stats.EmbeddedChunks != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
