package download

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sahelwatch/reliefdocs/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestFetchPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.txt":
			w.Write([]byte("Humanitarian update for Sudan."))
		case "/missing.pdf":
			http.NotFound(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	db := openTestDB(t)
	aid, err := db.InsertAssessment(&database.Assessment{ReportID: "rw-1", Title: "Test", FilterReason: ptr("clean_primary")})
	if err != nil || aid == 0 {
		t.Fatalf("insert assessment: %v", err)
	}

	okID, _ := db.InsertDownload(aid, srv.URL+"/ok.txt", "ok.txt")
	db.InsertDownload(aid, srv.URL+"/archive.zip", "archive.zip")

	dataDir := t.TempDir()
	f := NewFetcher(db, dataDir, 0)
	result := f.FetchPending(nil)

	if result.Downloaded != 1 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	d, err := db.GetDownloadByID(okID)
	if err != nil {
		t.Fatalf("get download: %v", err)
	}
	if d.Status != database.DownloadCompleted || d.LocalPath == nil {
		t.Fatalf("download not completed: %+v", d)
	}
	data, err := os.ReadFile(*d.LocalPath)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "Humanitarian update for Sudan." {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestFetchPendingHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	db := openTestDB(t)
	aid, _ := db.InsertAssessment(&database.Assessment{ReportID: "rw-2", Title: "Test"})
	firstID, _ := db.InsertDownload(aid, srv.URL+"/a.pdf", "a.pdf")
	secondID, _ := db.InsertDownload(aid, srv.URL+"/b.pdf", "b.pdf")

	f := NewFetcher(db, t.TempDir(), 0)
	result := f.FetchPending(&aid)

	// first 404 marks the host failed; second is failed fast
	if result.Failed != 2 {
		t.Fatalf("expected 2 failures, got %+v", result)
	}
	first, _ := db.GetDownloadByID(firstID)
	if first.Status != database.DownloadFailed || first.Error == nil {
		t.Errorf("first failure not recorded: %+v", first)
	}
	second, _ := db.GetDownloadByID(secondID)
	if second.Status != database.DownloadFailed {
		t.Errorf("second failure not recorded: %+v", second)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd":     "passwd",
		"my report (v2).docx":  "my_report__v2_.docx",
		"":                     "attachment",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
