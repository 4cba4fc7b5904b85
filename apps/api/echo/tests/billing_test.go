package tests

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
	"github.com/biilasha/biilasha/core/report"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/tests"
)

func Test_invoiceApi_generate(t *testing.T) {
	app := setup(t)
	token := app.operatorToken(t)
	tuition := testutil.CreateFee(t, app.feeRepo, "Tuition")
	ayaan := testutil.CreateStudent(t, app.studentRepo, "Ayaan", 50, student.StatusActive)
	testutil.CreateStudent(t, app.studentRepo, "Bile", 70, student.StatusActive)
	testutil.CreateStudent(t, app.studentRepo, "Cawo", 30, student.StatusInactive)

	march := marshalObj(t, invoice.GenerateRequest{FeeID: tuition.ID, Month: 3, Year: 2025})

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/invoices/generate", body: march, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "list: invalid period", method: http.MethodGet, path: "/v1/invoices?period=notamonth", token: token, wantCode: http.StatusBadRequest},
		{
			name: "required fields", method: http.MethodPost, path: "/v1/invoices/generate", token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"fee_id":"this field is required","month":"this field is required","year":"this field is required"}`),
		},
		{
			name: "unknown fee", method: http.MethodPost, path: "/v1/invoices/generate", token: token,
			body:     marshalObj(t, invoice.GenerateRequest{FeeID: 999, Month: 3, Year: 2025}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"fee_id":"fee not found"}`),
		},
		{
			name: "custom: no student selected", method: http.MethodPost, path: "/v1/invoices/generate/custom", token: token, body: march,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_ids":"select at least one student"}`),
		},
	})

	t.Run("quick generate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/generate", token, march)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res invoice.GenerateResult
		unmarshalBody(t, rec, &res)
		assert.Equal(t, 2, res.Created, "active students only")
		assert.Equal(t, "March 2025", res.MonthName)
		assert.Equal(t, "2025-03-31", res.DueDate.String())
		for _, inv := range res.Invoices {
			assert.Equal(t, invoice.StatusUnpaid, inv.Status)
			assert.Equal(t, "Tuition", inv.FeeName)
		}

		// nothing left to invoice
		req, rec = newAuthRequest(http.MethodPost, "/v1/invoices/generate", token, march)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"all invoices already exist for this fee and month"}`, rec.Body.String())
	})

	t.Run("custom generate", func(t *testing.T) {
		body := marshalObj(t, invoice.GenerateRequest{FeeID: tuition.ID, Month: 4, Year: 2025, StudentIDs: []int{ayaan.ID, ayaan.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/generate/custom", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res invoice.GenerateResult
		unmarshalBody(t, rec, &res)
		require.Equal(t, 1, res.Created, "one invoice per selected student")
		assert.Equal(t, ayaan.ID, res.Invoices[0].StudentID)
		assert.Equal(t, "50", res.Invoices[0].Amount.String())
	})

	t.Run("months", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/invoices/months", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var months []invoice.Month
		unmarshalBody(t, rec, &months)
		require.Len(t, months, 2)
		assert.Equal(t, "April 2025", months[0].MonthName, "newest first")
		assert.Equal(t, "2025-03", months[1].Key)
	})
}

func Test_paymentApi(t *testing.T) {
	app := setup(t)
	token := app.operatorToken(t)
	tuition := testutil.CreateFee(t, app.feeRepo, "Tuition")
	ayaan := testutil.CreateStudent(t, app.studentRepo, "Ayaan", 50, student.StatusActive)

	req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/generate", token,
		marshalObj(t, invoice.GenerateRequest{FeeID: tuition.ID, Month: 3, Year: 2025}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var generated invoice.GenerateResult
	unmarshalBody(t, rec, &generated)
	inv := generated.Invoices[0]
	require.Equal(t, ayaan.ID, inv.StudentID)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/payments", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "invalid limit", method: http.MethodGet, path: "/v1/payments?limit=abc", token: token, wantCode: http.StatusBadRequest},
		{name: "none yet", method: http.MethodGet, path: "/v1/payments", token: token, wantData: []byte("[]")},
		{
			name: "record: required invoice", method: http.MethodPost, path: "/v1/payments", token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"invoice_id":"this field is required"}`),
		},
		{
			name: "record: unknown invoice", method: http.MethodPost, path: "/v1/payments", token: token, body: []byte(`{"invoice_id":999}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"invoice_id":"invoice not found"}`),
		},
		{
			name: "record: unknown method", method: http.MethodPost, path: "/v1/payments", token: token,
			body:     []byte(`{"invoice_id":` + itoa(inv.ID) + `,"payment_method":"cheque"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invoice payments (unknown invoice)", method: http.MethodGet, path: "/v1/invoices/999/payments", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "invoice not found"}),
		},
	})

	t.Run("partial then full payment", func(t *testing.T) {
		body := []byte(`{"invoice_id":` + itoa(inv.ID) + `,"amount_paid":"20","payment_method":"Mobile_Money","payment_date":"2025-03-10"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var receipt payment.Receipt
		unmarshalBody(t, rec, &receipt)
		assert.Equal(t, payment.MethodMobileMoney, receipt.Payment.Method)
		assert.Equal(t, "2025-03-10", receipt.Payment.PaymentDate.String())
		assert.Equal(t, invoice.StatusUnpaid, receipt.Invoice.Status, "partially paid")

		req, rec = newAuthRequest(http.MethodGet, "/v1/invoices/"+itoa(inv.ID)+"/balance", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var bal payment.Balance
		unmarshalBody(t, rec, &bal)
		assert.Equal(t, "20", bal.Paid.String())
		assert.Equal(t, "30", bal.Outstanding.String())

		// no amount settles the outstanding balance
		req, rec = newAuthRequest(http.MethodPost, "/v1/payments", token, []byte(`{"invoice_id":`+itoa(inv.ID)+`}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &receipt)
		assert.Equal(t, "30", receipt.Payment.AmountPaid.String())
		assert.Equal(t, payment.MethodCash, receipt.Payment.Method)
		assert.Equal(t, invoice.StatusPaid, receipt.Invoice.Status)

		req, rec = newAuthRequest(http.MethodGet, "/v1/invoices/"+itoa(inv.ID)+"/payments", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var payments []payment.Payment
		unmarshalBody(t, rec, &payments)
		assert.Len(t, payments, 2)

		req, rec = newAuthRequest(http.MethodGet, "/v1/payments/"+itoa(receipt.Payment.ID), token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		// fully paid
		req, rec = newAuthRequest(http.MethodPost, "/v1/payments", token, []byte(`{"invoice_id":`+itoa(inv.ID)+`}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"amount_paid":"this invoice has no outstanding balance"}`, rec.Body.String())
	})

	t.Run("stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/stats", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats report.Stats
		unmarshalBody(t, rec, &stats)
		assert.Equal(t, 1, stats.TotalStudents)
		assert.Equal(t, "50", stats.TotalCollected.String())
		assert.Equal(t, 0, stats.UnpaidInvoicesCount)
	})
}

func Test_reportApi_export(t *testing.T) {
	app := setup(t)
	token := app.operatorToken(t)
	tuition := testutil.CreateFee(t, app.feeRepo, "Tuition")
	testutil.CreateStudent(t, app.studentRepo, "Ayaan", 50, student.StatusActive)

	runHTTPTests(t, app, []httpTest{
		{
			name: "no data", method: http.MethodGet, path: "/v1/reports/export", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "no data to export"}),
		},
		{
			name: "unknown format", method: http.MethodGet, path: "/v1/reports/export?format=pdf", token: token,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"format":"format must be one of [csv xlsx]"}`),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/generate", token,
		marshalObj(t, invoice.GenerateRequest{FeeID: tuition.ID, Month: 3, Year: 2025}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("csv", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/export?month=March%202025", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Regexp(t, `^attachment; filename="school_finance_report_\d{4}-\d{2}-\d{2}\.csv"$`, rec.Header().Get("Content-Disposition"))

		records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"Student Name", "Fee Name", "Amount", "Month", "Status", "Due Date", "Created At"}, records[0])
		assert.Equal(t, []string{"Ayaan", "Tuition", "50.00", "March 2025", "unpaid", "3/31/2025"}, records[1][:6])
	})

	t.Run("other month", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/export?month=2025-04", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("xlsx", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/export?format=XLSX", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
		assert.NotEmpty(t, rec.Body.Bytes())
	})
}
