// Package export produces XLSX workbooks of registry contents.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sahelwatch/reliefdocs/internal/database"
)

const sheet = "Assessments"

// AssessmentsXLSX returns an XLSX workbook (as bytes) listing the
// given assessments, newest first as provided.
func AssessmentsXLSX(assessments []database.Assessment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Report ID",
		"Title",
		"Primary Country",
		"Countries",
		"Sources",
		"Formats",
		"Themes",
		"Date Created",
		"Filter Reason",
		"URL",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, a := range assessments {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, a.ReportID)
		write(2, truncate(a.Title, 200))
		write(3, deref(a.PrimaryCountry))
		write(4, deref(a.Countries))
		write(5, deref(a.Sources))
		write(6, deref(a.Formats))
		write(7, deref(a.Themes))
		write(8, deref(a.DateCreated))
		write(9, deref(a.FilterReason))
		write(10, deref(a.URL))
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 60)
	_ = f.SetColWidth(sheet, "C", "C", 18)
	_ = f.SetColWidth(sheet, "D", "G", 30)
	_ = f.SetColWidth(sheet, "H", "I", 16)
	_ = f.SetColWidth(sheet, "J", "J", 50)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
