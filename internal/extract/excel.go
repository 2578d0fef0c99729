package extract

import (
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelExtractor flattens spreadsheets into pipe-delimited rows, one
// section per sheet. Assessment data often arrives as 3W/4W matrices.
type ExcelExtractor struct{}

func (e *ExcelExtractor) Supports(ext string) bool {
	return ext == ".xlsx" || ext == ".xls"
}

func (e *ExcelExtractor) Extract(path string) Content {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return failure(fmt.Sprintf("spreadsheet open failed: %v", err))
	}
	defer f.Close()

	var parts []string
	totalRows := 0
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			log.Printf("Failed to read sheet %q in %s: %v", sheet, path, err)
			continue
		}

		parts = append(parts, "Sheet: "+sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if line == "" || strings.Trim(line, "| ") == "" {
				continue
			}
			parts = append(parts, line)
			totalRows++
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if totalRows == 0 {
		return failure("spreadsheet contains no data rows")
	}

	return Content{
		Text:       text,
		PageCount:  len(sheets),
		Confidence: 0.8,
		Metadata: map[string]any{
			"format": "xlsx",
			"sheets": len(sheets),
			"rows":   totalRows,
		},
	}
}
