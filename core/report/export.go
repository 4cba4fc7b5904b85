package report

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	exportDateLayout = "1/2/2006"
	exportSheet      = "Report"
)

var (
	ErrNoExportData = errors.New("no data to export")

	exportHeader = []string{"Student Name", "Fee Name", "Amount", "Month", "Status", "Due Date", "Created At"}
)

// ExportFilename names an export made at `now`, eg. "school_finance_report_2025-03-31.csv".
func ExportFilename(now time.Time, format string) string {
	return "school_finance_report_" + now.Format(core.DateLayout) + "." + format
}

// ExportRows turns invoices into report rows, header excluded.
func ExportRows(invoices []invoice.Invoice) [][]string {
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		var dueDate string
		if !inv.DueDate.IsZero() {
			dueDate = inv.DueDate.Format(exportDateLayout)
		}
		rows = append(rows, []string{
			inv.StudentName,
			inv.FeeName,
			inv.Amount.StringFixed(2),
			inv.MonthName,
			inv.Status,
			dueDate,
			inv.CreatedAt.UTC().Format(exportDateLayout),
		})
	}
	return rows
}

// WriteCSV writes one row per invoice, with a header row.
func WriteCSV(w io.Writer, invoices []invoice.Invoice) error {
	if len(invoices) == 0 {
		return ErrNoExportData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	if err := cw.WriteAll(ExportRows(invoices)); err != nil {
		return errors.Wrap(err, "writing csv rows")
	}
	return nil
}

// WriteXLSX writes the same rows as WriteCSV to an Excel workbook.
func WriteXLSX(w io.Writer, invoices []invoice.Invoice) error {
	if len(invoices) == 0 {
		return ErrNoExportData
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	f.SetSheetName(f.GetSheetName(0), exportSheet)

	rows := append([][]string{exportHeader}, ExportRows(invoices)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "computing xlsx cell")
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return errors.Wrap(err, "writing xlsx row")
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing xlsx")
	}
	return nil
}
