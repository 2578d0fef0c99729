// Package extract turns downloaded report attachments into plain text.
// Each supported format has its own extractor; extraction never fails
// hard, a broken file yields an empty zero-confidence result.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Content is the result of extracting one file.
type Content struct {
	Text       string
	PageCount  int
	Confidence float64
	Metadata   map[string]any
}

// Failed reports whether extraction produced no usable text.
func (c Content) Failed() bool {
	return c.Confidence == 0 || strings.TrimSpace(c.Text) == ""
}

// WordCount returns the number of whitespace-separated words.
func (c Content) WordCount() int {
	return len(strings.Fields(c.Text))
}

// Extractor extracts text from one family of file formats.
type Extractor interface {
	Supports(ext string) bool
	Extract(path string) Content
}

// ordered by how much structure each extractor understands
var registry = []Extractor{
	&PDFExtractor{},
	&WordExtractor{},
	&ExcelExtractor{},
	&HTMLExtractor{},
	&TextExtractor{},
}

// For returns the extractor responsible for path, or nil.
func For(path string) Extractor {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range registry {
		if e.Supports(ext) {
			return e
		}
	}
	return nil
}

// SupportedExtensions lists the file extensions an extractor exists for.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc", ".xlsx", ".xls", ".html", ".htm", ".txt", ".md", ".csv"}
}

// FromFile extracts text from path using the matching extractor.
func FromFile(path string) Content {
	info, err := os.Stat(path)
	if err != nil {
		return failure(fmt.Sprintf("file not accessible: %v", err))
	}
	if info.Size() == 0 {
		return failure("file is empty")
	}

	e := For(path)
	if e == nil {
		return failure(fmt.Sprintf("unsupported file type %q", filepath.Ext(path)))
	}
	return e.Extract(path)
}

// failure builds the zero-confidence result returned for any file that
// cannot be extracted.
func failure(reason string) Content {
	return Content{
		Metadata: map[string]any{"error": reason},
	}
}

func pageEstimate(words int) int {
	const wordsPerPage = 500
	pages := words / wordsPerPage
	if pages < 1 {
		return 1
	}
	return pages
}
