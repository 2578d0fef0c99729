package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sahelwatch/reliefdocs/internal/config"
	"github.com/sahelwatch/reliefdocs/internal/database"
)

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeTestConfig(t, apiURL))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func writeTestConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "api:\n  base_url: " + apiURL + "\n" +
		"filter:\n  country: Sudan\n  policy: primary\n" +
		"embedding:\n  provider: none\n" +
		"output:\n  data_dir: " + dir + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func apiPayload() map[string]any {
	report := func(id, title, primary string, countries []string) map[string]any {
		names := make([]map[string]string, len(countries))
		for i, c := range countries {
			names[i] = map[string]string{"name": c}
		}
		return map[string]any{
			"id": id,
			"fields": map[string]any{
				"title":           title,
				"url":             "https://reliefweb.int/report/" + id,
				"date":            map[string]string{"created": "2026-08-12T00:00:00+00:00"},
				"primary_country": []map[string]string{{"name": primary}},
				"country":         names,
				"file": []map[string]string{
					{"url": "https://example.org/" + id + ".pdf", "filename": id + ".pdf"},
				},
			},
		}
	}

	return map[string]any{
		"totalCount": 3,
		"data": []any{
			report("101", "Sudan: Humanitarian Snapshot", "Sudan", []string{"Sudan"}),
			report("102", "South Sudan: Refugee Response", "South Sudan", []string{"South Sudan"}),
			report("103", "Sudan: Displacement Overview", "Sudan", []string{"Sudan", "Chad"}),
		},
	}
}

func TestIngest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiPayload())
	}))
	defer srv.Close()

	db := openTestDB(t)
	p, err := New(testConfig(t, srv.URL), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	result := p.Ingest(context.Background())
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	for _, s := range result.Steps {
		if s.Err != nil {
			t.Fatalf("step %s failed: %v", s.Name, s.Err)
		}
	}

	assessments, err := db.ListAssessments(0)
	if err != nil {
		t.Fatalf("list assessments: %v", err)
	}
	if len(assessments) != 2 {
		t.Fatalf("expected 2 kept assessments, got %d", len(assessments))
	}
	for _, a := range assessments {
		if a.ReportID == "102" {
			t.Error("South Sudan report should have been filtered out")
		}
		if a.FilterReason == nil || *a.FilterReason != "clean_primary" {
			t.Errorf("missing filter reason on %s", a.ReportID)
		}
	}

	// attachments queued as pending
	pending, err := db.GetPendingDownloads(nil)
	if err != nil {
		t.Fatalf("pending downloads: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending downloads, got %d", len(pending))
	}
}

func TestIngestIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiPayload())
	}))
	defer srv.Close()

	db := openTestDB(t)
	p, err := New(testConfig(t, srv.URL), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	p.Ingest(context.Background())
	p.Ingest(context.Background())

	assessments, _ := db.ListAssessments(0)
	if len(assessments) != 2 {
		t.Fatalf("re-ingest should not duplicate, got %d assessments", len(assessments))
	}
}

func TestIngestFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	db := openTestDB(t)
	p, err := New(testConfig(t, srv.URL), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	result := p.Ingest(context.Background())
	if len(result.Steps) != 1 {
		t.Fatalf("expected pipeline to stop after fetch, got %d steps", len(result.Steps))
	}
	if result.Steps[0].Err == nil {
		t.Fatal("expected fetch step error")
	}
}

func TestProcessDownload(t *testing.T) {
	db := openTestDB(t)
	p, err := New(testConfig(t, "http://unused.invalid"), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	aid, _ := db.InsertAssessment(&database.Assessment{ReportID: "rw-1", Title: "Test"})
	did, _ := db.InsertDownload(aid, "https://example.org/report.txt", "report.txt")

	path := filepath.Join(t.TempDir(), "report.txt")
	text := "Humanitarian needs across Sudan continue to grow. " +
		"Displacement from Darfur has increased sharply this quarter. " +
		"Partners report severe funding gaps across all sectors."
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	if err := db.MarkDownloadCompleted(did, path); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := p.ProcessDownloadByID(context.Background(), did); err != nil {
		t.Fatalf("process download: %v", err)
	}

	e, err := db.GetExtractionByDownload(did)
	if err != nil || e == nil {
		t.Fatalf("extraction not stored: %v", err)
	}
	if e.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for plain text, got %v", e.Confidence)
	}
	if e.Text == nil || *e.Text == "" {
		t.Error("expected cleaned text stored")
	}
	if e.Metadata == nil {
		t.Fatal("expected metadata JSON")
	}
	var meta struct {
		Derived struct {
			Geo struct {
				PrimaryCountry string `json:"primary_country"`
			} `json:"geographic_context"`
		} `json:"derived"`
	}
	if err := json.Unmarshal([]byte(*e.Metadata), &meta); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if meta.Derived.Geo.PrimaryCountry != "Sudan" {
		t.Errorf("expected Sudan as primary geo, got %q", meta.Derived.Geo.PrimaryCountry)
	}

	chunks, err := db.GetChunksForExtraction(e.ID)
	if err != nil || len(chunks) == 0 {
		t.Fatalf("expected stored chunks: %v", err)
	}
	// no embedder configured, so nothing hit the vector index
	if p.Index().Len() != 0 {
		t.Errorf("expected empty index, got %d vectors", p.Index().Len())
	}

	// processed downloads should no longer need extraction
	needing, _ := db.GetDownloadsNeedingExtraction()
	if len(needing) != 0 {
		t.Errorf("expected no downloads needing extraction, got %d", len(needing))
	}
}

func TestProcessDownloadRecordsFailure(t *testing.T) {
	db := openTestDB(t)
	p, err := New(testConfig(t, "http://unused.invalid"), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	aid, _ := db.InsertAssessment(&database.Assessment{ReportID: "rw-2", Title: "Test"})
	did, _ := db.InsertDownload(aid, "https://example.org/broken.pdf", "broken.pdf")

	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	db.MarkDownloadCompleted(did, path)

	if err := p.ProcessDownloadByID(context.Background(), did); err == nil {
		t.Fatal("expected error for unextractable file")
	}

	// the failure is recorded so the download is not retried forever
	e, _ := db.GetExtractionByDownload(did)
	if e == nil || e.Confidence != 0 {
		t.Fatalf("expected zero-confidence extraction row, got %+v", e)
	}
	needing, _ := db.GetDownloadsNeedingExtraction()
	if len(needing) != 0 {
		t.Errorf("failed extraction should not be retried, got %d", len(needing))
	}
}

func TestProcessDownloadNotCompleted(t *testing.T) {
	db := openTestDB(t)
	p, err := New(testConfig(t, "http://unused.invalid"), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	aid, _ := db.InsertAssessment(&database.Assessment{ReportID: "rw-3", Title: "Test"})
	did, _ := db.InsertDownload(aid, "https://example.org/x.pdf", "x.pdf")

	if err := p.ProcessDownloadByID(context.Background(), did); err == nil {
		t.Fatal("expected error for pending download")
	}
	if err := p.ProcessDownloadByID(context.Background(), 9999); err == nil {
		t.Fatal("expected error for missing download")
	}
}

func TestSearchWithoutEmbedder(t *testing.T) {
	db := openTestDB(t)
	p, err := New(testConfig(t, "http://unused.invalid"), db)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Search(context.Background(), "funding gaps", 5); err == nil {
		t.Fatal("expected error with no embedding provider")
	}
}
