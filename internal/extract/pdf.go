package extract

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// PDF attachments range from clean digital exports to barely parseable
// scans, so extraction runs a chain of methods from most to least
// structured. Confidence reflects which method produced the text.
type PDFExtractor struct{}

func (e *PDFExtractor) Supports(ext string) bool {
	return ext == ".pdf"
}

const minPDFText = 50

type pdfMethod struct {
	name       string
	confidence float64
	run        func(path string) (string, int, error)
}

var pdfMethods = []pdfMethod{
	{"pdf_library", 0.95, pdfLibrary},
	{"stream_scan", 0.9, pdfStreamScan},
	{"raw_text", 0.7, pdfRawText},
}

func (e *PDFExtractor) Extract(path string) Content {
	for _, m := range pdfMethods {
		text, pages, err := m.run(path)
		if err != nil {
			log.Printf("PDF method %s failed for %s: %v", m.name, path, err)
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) < minPDFText {
			continue
		}
		if pages < 1 {
			pages = 1
		}
		return Content{
			Text:       text,
			PageCount:  pages,
			Confidence: m.confidence,
			Metadata:   map[string]any{"format": "pdf", "method": m.name},
		}
	}
	return failure("no PDF extraction method produced text")
}

// pdfLibrary walks the page tree with the pdf library. The parser
// panics on some malformed files, so the call is recover-guarded.
func pdfLibrary(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, reader, err := lpdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	total := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), total, nil
}

var (
	streamRe   = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	tjRe       = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	tjArrayRe  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	tjBlockRe  = regexp.MustCompile(`\[(.*?)\]\s*TJ`)
	pageTypeRe = regexp.MustCompile(`/Type\s*/Page[^s]`)
	btEtRe     = regexp.MustCompile(`(?s)BT(.*?)ET`)
)

// pdfStreamScan decompresses content streams directly and pulls the
// text-showing operators out of them.
func pdfStreamScan(path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	for _, m := range streamRe.FindAllSubmatch(data, -1) {
		content := m[1]
		if r, err := zlib.NewReader(bytes.NewReader(content)); err == nil {
			if inflated, err := io.ReadAll(r); err == nil {
				content = inflated
			}
			r.Close()
		}
		collectShownText(&sb, string(content))
	}

	text := sb.String()
	if text == "" {
		return "", 0, fmt.Errorf("no text operators found in streams")
	}
	pages := len(pageTypeRe.FindAll(data, -1))
	return text, pages, nil
}

// pdfRawText is the last resort: scan raw bytes for BT/ET text blocks
// without decompressing anything.
func pdfRawText(path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	for _, m := range btEtRe.FindAllSubmatch(data, -1) {
		collectShownText(&sb, string(m[1]))
	}

	text := sb.String()
	if text == "" {
		return "", 0, fmt.Errorf("no raw text blocks found")
	}
	pages := len(pageTypeRe.FindAll(data, -1))
	return text, pages, nil
}

// collectShownText appends the arguments of Tj and TJ operators.
func collectShownText(sb *strings.Builder, content string) {
	for _, m := range tjRe.FindAllStringSubmatch(content, -1) {
		sb.WriteString(unescapePDFString(m[1]))
		sb.WriteString(" ")
	}
	for _, block := range tjBlockRe.FindAllStringSubmatch(content, -1) {
		for _, m := range tjArrayRe.FindAllStringSubmatch(block[1], -1) {
			sb.WriteString(unescapePDFString(m[1]))
		}
		sb.WriteString(" ")
	}
}

func unescapePDFString(s string) string {
	r := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "",
		`\t`, "\t",
	)
	return r.Replace(s)
}
