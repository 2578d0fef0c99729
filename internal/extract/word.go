package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// WordExtractor reads .docx files, which are zip archives holding the
// document body as WordprocessingML in word/document.xml. Legacy .doc
// files are claimed too but fail the zip open and yield the usual
// zero-confidence result.
type WordExtractor struct{}

func (e *WordExtractor) Supports(ext string) bool {
	return ext == ".docx" || ext == ".doc"
}

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func (e *WordExtractor) Extract(path string) Content {
	raw, err := readDocumentXML(path)
	if err != nil {
		return failure(fmt.Sprintf("docx open failed: %v", err))
	}

	var doc docxDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return failure(fmt.Sprintf("docx parse failed: %v", err))
	}

	var parts []string
	for _, p := range doc.Body.Paragraphs {
		if text := p.text(); text != "" {
			parts = append(parts, text)
		}
	}
	tableRows := 0
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			var cells []string
			nonEmpty := false
			for _, cell := range row.Cells {
				var cellParts []string
				for _, p := range cell.Paragraphs {
					if text := p.text(); text != "" {
						cellParts = append(cellParts, text)
					}
				}
				cellText := strings.Join(cellParts, " ")
				if cellText != "" {
					nonEmpty = true
				}
				cells = append(cells, cellText)
			}
			if nonEmpty {
				parts = append(parts, strings.Join(cells, " | "))
				tableRows++
			}
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return failure("docx contains no text")
	}

	// explicit page breaks plus the final page
	pages := strings.Count(string(raw), `w:type="page"`) + 1

	return Content{
		Text:       text,
		PageCount:  pages,
		Confidence: 0.95,
		Metadata: map[string]any{
			"format":     "docx",
			"paragraphs": len(doc.Body.Paragraphs),
			"tables":     len(doc.Body.Tables),
			"table_rows": tableRows,
		},
	}
}

func (p docxParagraph) text() string {
	var sb strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Text {
			sb.WriteString(t)
		}
	}
	return strings.TrimSpace(sb.String())
}

func readDocumentXML(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("word/document.xml not found in archive")
}
