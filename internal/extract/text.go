package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextExtractor handles plain text, Markdown and CSV files. Markdown is
// rendered first so headings and link targets don't leak into the text.
type TextExtractor struct{}

func (e *TextExtractor) Supports(ext string) bool {
	switch ext {
	case ".txt", ".md", ".csv":
		return true
	}
	return false
}

func (e *TextExtractor) Extract(path string) Content {
	data, err := os.ReadFile(path)
	if err != nil {
		return failure(fmt.Sprintf("read failed: %v", err))
	}

	text, encoding, err := decodeText(data)
	if err != nil {
		return failure(fmt.Sprintf("decode failed: %v", err))
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "md" {
		rendered, err := renderMarkdown(text)
		if err == nil {
			text = rendered
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return failure("file decoded to empty text")
	}

	words := len(strings.Fields(text))
	return Content{
		Text:       text,
		PageCount:  pageEstimate(words),
		Confidence: 1.0,
		Metadata: map[string]any{
			"format":   format,
			"encoding": encoding,
		},
	}
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText tries encodings in order of how common they are in relief
// document uploads: UTF-8 (with or without BOM), UTF-16, then CP1252 as
// the catch-all for legacy Windows exports.
func decodeText(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(bytes.TrimPrefix(data, bomUTF8)), "utf-8-sig", nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", "", err
		}
		return string(out), "utf-16", nil
	case utf8.Valid(data):
		return string(data), "utf-8", nil
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", err
	}
	return string(out), "cp1252", nil
}

// renderMarkdown converts Markdown to HTML and strips the tags, which
// drops syntax markers while keeping the prose.
func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return stripTags(buf.String()), nil
}

func stripTags(html string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
			sb.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}

	s := sb.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	return strings.Join(strings.Fields(s), " ")
}
