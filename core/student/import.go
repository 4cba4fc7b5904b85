package student

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/biilasha/biilasha/core"
)

const utf8BOM = "\ufeff"

var (
	errNoImportData = "no valid data to import"

	// accepted header names per column, in order of precedence (Somali first)
	importColumns = map[string][]string{
		"student_name": {"magac ardeyga", "student_name"},
		"parent_name":  {"waalidka", "parent_name"},
		"parent_phone": {"n.waalidka", "parent_phone"},
		"monthly_fee":  {"lacagta", "monthly_fee"},
		"status":       {"xaalad", "status"},
	}
)

type importRow struct {
	line   int
	fields []string
}

// ParseCSV reads a student roster from a CSV file with a header row.
// Headers may be in English (student_name, parent_name, parent_phone, monthly_fee, status) or
// Somali (Magac ardeyga, Waalidka, N.Waalidka, Lacagta, Xaalad).
func ParseCSV(r io.Reader) (ImportPreview, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []importRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportPreview{}, importError(err.Error())
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, importRow{line: line, fields: record})
	}
	return parseRows(rows)
}

// ParseXLSX reads a student roster from the first sheet of an Excel workbook.
// It accepts the same headers as ParseCSV.
func ParseXLSX(r io.Reader) (ImportPreview, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportPreview{}, importError("invalid xlsx file")
	}
	defer func() { _ = f.Close() }()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return ImportPreview{}, errors.Wrap(err, "reading xlsx rows")
	}
	rows := make([]importRow, 0, len(records))
	for i, record := range records {
		rows = append(rows, importRow{line: i + 1, fields: record})
	}
	return parseRows(rows)
}

// ParseImportFile picks the parser from the file name's extension (csv by default).
func ParseImportFile(r io.Reader, filename string) (ImportPreview, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return ParseXLSX(r)
	}
	return ParseCSV(r)
}

func parseRows(rows []importRow) (ImportPreview, error) {
	if len(rows) == 0 {
		return ImportPreview{}, importError(errNoImportData)
	}

	idx := headerIndexes(rows[0].fields)
	if _, ok := idx["student_name"]; !ok {
		return ImportPreview{}, importError("missing student name column (Magac ardeyga or student_name)")
	}
	if _, ok := idx["parent_name"]; !ok {
		return ImportPreview{}, importError("missing parent name column (Waalidka or parent_name)")
	}

	preview := ImportPreview{Students: make([]NewStudent, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		get := func(col string) string {
			for _, i := range idx[col] {
				if i < len(row.fields) {
					if v := core.CleanString(row.fields[i]); v != "" {
						return v
					}
				}
			}
			return ""
		}

		ns := NewStudent{
			Name:        get("student_name"),
			ParentName:  get("parent_name"),
			ParentPhone: get("parent_phone"),
			Status:      strings.ToLower(get("status")),
		}
		if ns.Name == "" || ns.ParentName == "" {
			preview.Dropped++
			continue
		}

		if fee := get("monthly_fee"); fee != "" {
			amount, err := decimal.NewFromString(strings.ReplaceAll(fee, ",", ""))
			if err != nil || amount.IsNegative() {
				return ImportPreview{}, importError(fmt.Sprintf("line %d: invalid monthly fee %q", row.line, fee))
			}
			ns.MonthlyFee = amount
		}

		switch ns.Status {
		case "":
			ns.Status = StatusActive
		case StatusActive, StatusInactive:
		default:
			return ImportPreview{}, importError(fmt.Sprintf("line %d: invalid status %q", row.line, ns.Status))
		}
		preview.Students = append(preview.Students, ns)
	}

	if len(preview.Students) == 0 {
		return preview, importError(errNoImportData)
	}
	return preview, nil
}

// headerIndexes maps each known column to the indexes of the header cells naming it,
// in order of precedence.
func headerIndexes(header []string) map[string][]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(core.CleanString(strings.TrimPrefix(h, utf8BOM)))
		if _, seen := positions[h]; !seen {
			positions[h] = i
		}
	}

	idx := make(map[string][]int, len(importColumns))
	for col, names := range importColumns {
		for _, name := range names {
			if i, ok := positions[name]; ok {
				idx[col] = append(idx[col], i)
			}
		}
	}
	return idx
}

func importError(msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "file", Error: msg})
}
