package extract

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// HTMLExtractor extracts article text from saved web pages using the
// same readability pass the downloader applies to live pages.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Supports(ext string) bool {
	return ext == ".html" || ext == ".htm"
}

func (e *HTMLExtractor) Extract(path string) Content {
	f, err := os.Open(path)
	if err != nil {
		return failure(fmt.Sprintf("open failed: %v", err))
	}
	defer f.Close()

	article, err := readability.FromReader(f, &url.URL{Scheme: "file", Path: path})
	if err != nil {
		// readability gives up on fragments; fall back to tag stripping
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return failure(fmt.Sprintf("readability failed: %v", err))
		}
		text := strings.TrimSpace(stripTags(string(data)))
		if text == "" {
			return failure("html contains no text")
		}
		return Content{
			Text:       text,
			PageCount:  pageEstimate(len(strings.Fields(text))),
			Confidence: 0.7,
			Metadata:   map[string]any{"format": "html", "method": "strip_tags"},
		}
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return failure("html contains no readable text")
	}

	meta := map[string]any{"format": "html", "method": "readability"}
	if article.Title != "" {
		meta["title"] = article.Title
	}
	return Content{
		Text:       text,
		PageCount:  pageEstimate(len(strings.Fields(text))),
		Confidence: 0.9,
		Metadata:   meta,
	}
}
