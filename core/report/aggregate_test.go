package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
)

func inv(status string, amount int64, period invoice.Period) invoice.Invoice {
	return invoice.Invoice{
		Status:      status,
		Amount:      decimal.NewFromInt(amount),
		Period:      period,
		MonthName:   period.MonthName(),
		DueDate:     period.LastDay(),
		CreatedAt:   time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC),
		StudentName: "Ayaan",
		FeeName:     "Tuition",
	}
}

var (
	jan = invoice.NewPeriod(2025, time.January)
	dec = invoice.NewPeriod(2024, time.December)
	feb = invoice.NewPeriod(2025, time.February)
)

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(4, []invoice.Invoice{
		inv(invoice.StatusPaid, 50, jan),
		inv(invoice.StatusPaid, 75, feb),
		inv(invoice.StatusUnpaid, 60, feb),
	})
	assert.Equal(t, 4, stats.TotalStudents)
	assert.Equal(t, "125", stats.TotalCollected.String())
	assert.Equal(t, 1, stats.UnpaidInvoicesCount)
	assert.Equal(t, "60", stats.UnpaidAmount.String())

	empty := ComputeStats(0, nil)
	assert.True(t, empty.TotalCollected.IsZero())
	assert.True(t, empty.UnpaidAmount.IsZero())
}

func TestMonthlyCollections(t *testing.T) {
	collections := MonthlyCollections([]invoice.Invoice{
		inv(invoice.StatusPaid, 50, feb),
		inv(invoice.StatusPaid, 20, dec),
		inv(invoice.StatusUnpaid, 99, jan),
		inv(invoice.StatusPaid, 25, feb),
	})

	require.Len(t, collections, 2, "unpaid invoices are not collected")
	assert.Equal(t, "December 2024", collections[0].MonthName)
	assert.Equal(t, "20", collections[0].Amount.String())
	assert.Equal(t, "February 2025", collections[1].MonthName)
	assert.Equal(t, "75", collections[1].Amount.String())
	assert.Equal(t, 2, collections[1].Invoices)
}

func TestPaymentMethodTotals(t *testing.T) {
	pmt := func(method string, amount int64) payment.Payment {
		return payment.Payment{Method: method, AmountPaid: decimal.NewFromInt(amount)}
	}
	totals := PaymentMethodTotals([]payment.Payment{
		pmt(payment.MethodBank, 10),
		pmt("cheque", 5),
		pmt(payment.MethodCash, 20),
		pmt(payment.MethodBank, 15),
	})

	require.Len(t, totals, 3)
	assert.Equal(t, "cash", totals[0].Method)
	assert.Equal(t, "Cash", totals[0].Name)
	assert.Equal(t, "20", totals[0].Value.String())
	assert.Equal(t, "Bank", totals[1].Name)
	assert.Equal(t, "25", totals[1].Value.String())
	assert.Equal(t, "Cheque", totals[2].Name)
}

func TestExport(t *testing.T) {
	invoices := []invoice.Invoice{inv(invoice.StatusPaid, 50, feb)}
	wantRow := []string{"Ayaan", "Tuition", "50.00", "February 2025", "paid", "2/28/2025", "3/5/2025"}

	assert.Equal(t, "school_finance_report_2025-03-31.csv", ExportFilename(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC), FormatCSV))

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, invoices))

		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, [][]string{exportHeader, wantRow}, records)
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteXLSX(&buf, invoices))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		rows, err := f.GetRows(exportSheet)
		require.NoError(t, err)
		assert.Equal(t, [][]string{exportHeader, wantRow}, rows)
	})

	t.Run("nothing to export", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, ErrNoExportData, WriteCSV(&buf, nil))
		assert.Equal(t, ErrNoExportData, WriteXLSX(&buf, nil))
		assert.Zero(t, buf.Len())
	})

	// zero due dates are left blank
	rows := ExportRows([]invoice.Invoice{{Amount: decimal.NewFromInt(1), DueDate: core.Date{}}})
	assert.Equal(t, "", rows[0][5])
}
