// Package download fetches report attachments to local storage.
package download

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sahelwatch/reliefdocs/internal/database"
	"github.com/sahelwatch/reliefdocs/internal/extract"
)

const maxFileSize = 100 << 20 // 100 MB

// Result holds the results of a download run.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Fetcher downloads pending attachments into the documents directory.
type Fetcher struct {
	db      *database.DB
	dataDir string
	client  *http.Client
}

// NewFetcher creates a fetcher storing files under dataDir.
func NewFetcher(db *database.DB, dataDir string, timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		db:      db,
		dataDir: dataDir,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchPending downloads every pending attachment, optionally for one
// assessment. Unsupported formats are marked skipped; a failing host
// fails fast for its remaining files.
func (f *Fetcher) FetchPending(assessmentID *int64) *Result {
	downloads, err := f.db.GetPendingDownloads(assessmentID)
	if err != nil {
		log.Printf("Error getting pending downloads: %v", err)
		return &Result{}
	}

	if len(downloads) == 0 {
		log.Println("No attachments pending download")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, d := range downloads {
		if extract.For(d.Filename) == nil {
			f.db.MarkDownloadSkipped(d.ID, "unsupported file type")
			result.Skipped++
			continue
		}

		u, _ := url.Parse(d.URL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.db.MarkDownloadFailed(d.ID, "host previously failed this run")
			result.Failed++
			continue
		}

		localPath, err := f.fetchFile(d)
		if err != nil {
			f.db.MarkDownloadFailed(d.ID, err.Error())
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("Download failed for %s — skipping remaining from %s: %v", d.URL, domain, err)
			continue
		}

		f.db.MarkDownloadCompleted(d.ID, localPath)
		result.Downloaded++
		log.Printf("Downloaded %s", d.Filename)
	}

	log.Printf("Download run complete: %d downloaded, %d skipped, %d failed",
		result.Downloaded, result.Skipped, result.Failed)
	return result
}

// fetchFile streams one attachment to disk, namespaced by assessment.
func (f *Fetcher) fetchFile(d database.Download) (string, error) {
	req, err := http.NewRequest("GET", d.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "reliefdocs/1.0 (document registry)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	dir := filepath.Join(f.dataDir, "documents", fmt.Sprintf("%d", d.AssessmentID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	localPath := filepath.Join(dir, sanitizeFilename(d.Filename))
	out, err := os.Create(localPath)
	if err != nil {
		return "", err
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, maxFileSize))
	closeErr := out.Close()
	if err != nil {
		os.Remove(localPath)
		return "", err
	}
	if closeErr != nil {
		os.Remove(localPath)
		return "", closeErr
	}
	if written == 0 {
		os.Remove(localPath)
		return "", fmt.Errorf("empty response body")
	}

	return localPath, nil
}

// sanitizeFilename keeps attachment names filesystem-safe.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "attachment"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "attachment"
	}
	return sb.String()
}
