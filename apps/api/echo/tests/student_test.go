package tests

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/biilasha/biilasha/apps/api/echo"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/tests"
)

func Test_studentApi(t *testing.T) {
	app := setup(t)
	token := app.operatorToken(t)
	ayaan := testutil.CreateStudent(t, app.studentRepo, "Ayaan", 50, student.StatusActive)
	bile := testutil.CreateStudent(t, app.studentRepo, "Bile", 70, student.StatusInactive)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "malformed filter", method: http.MethodGet, path: "/v1/students", token: token, body: []byte(`{"status":`), wantCode: http.StatusBadRequest},
		{name: "Get all", method: http.MethodGet, path: "/v1/students", token: token, wantData: marshalObj(t, []student.Student{bile, ayaan})},
		{name: "search parent", method: http.MethodGet, path: "/v1/students?search=parent%20of%20ay", token: token, wantData: marshalObj(t, []student.Student{ayaan})},
		{name: "status", method: http.MethodGet, path: "/v1/students?status=INACTIVE", token: token, wantData: marshalObj(t, []student.Student{bile})},
		{name: "order by student_name", method: http.MethodGet, path: "/v1/students?ordering=student_name", token: token, wantData: marshalObj(t, []student.Student{ayaan, bile})},
		{name: "retrieve", method: http.MethodGet, path: "/v1/students/" + itoa(ayaan.ID), token: token, wantData: marshalObj(t, ayaan)},
		{
			name: "retrieve (unknown)", method: http.MethodGet, path: "/v1/students/999", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "create: required fields", method: http.MethodPost, path: "/v1/students", token: token, body: []byte(`{"monthly_fee":"10"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_name":"this field is required","parent_name":"this field is required"}`),
		},
		{
			name: "create: invalid status", method: http.MethodPost, path: "/v1/students", token: token,
			body:     []byte(`{"student_name":"Cawo","parent_name":"Hodan","status":"gone"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("create, update & delete", func(t *testing.T) {
		ctx := context.Background()
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, []byte(`{"student_name":" Cawo ","parent_name":"Hodan","monthly_fee":"30.5"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cawo student.Student
		unmarshalBody(t, rec, &cawo)
		assert.Equal(t, "Cawo", cawo.Name)
		assert.Equal(t, student.StatusActive, cawo.Status, "active by default")
		assert.Equal(t, "30.5", cawo.MonthlyFee.String())

		body := []byte(`{"student_name":"Cawo","parent_name":"Hodan","monthly_fee":"35","status":"inactive"}`)
		req, rec = newAuthRequest(http.MethodPut, "/v1/students/"+itoa(cawo.ID), token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &cawo)
		assert.Equal(t, student.StatusInactive, cawo.Status)

		// one invoice to cascade
		fe := testutil.CreateFee(t, app.feeRepo, "Tuition")
		req, rec = newAuthRequest(http.MethodPost, "/v1/invoices/generate/custom", token,
			marshalObj(t, invoice.GenerateRequest{FeeID: fe.ID, Month: 3, Year: 2025, StudentIDs: []int{cawo.ID}}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+itoa(cawo.ID)+"/impact", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"student_id":`+itoa(cawo.ID)+`,"invoices":1,"payments":0}`, rec.Body.String())

		req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+itoa(cawo.ID), token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		_, err := app.studentRepo.GetStudentByID(ctx, cawo.ID)
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
		invoices, err := app.invoiceRepo.QueryInvoices(ctx, &invoice.QueryFilter{StudentID: cawo.ID}, nil)
		require.NoError(t, err)
		assert.Empty(t, invoices)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+itoa(cawo.ID), token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func newImportRequest(t *testing.T, path, token, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return newRawRequest(http.MethodPost, path, token, w.FormDataContentType(), &body)
}

func Test_studentApi_import(t *testing.T) {
	app := setup(t)
	token := app.operatorToken(t)
	roster := "\ufeffMagac ardeyga,Waalidka,N.Waalidka,Lacagta,Xaalad\n" +
		"Ayaan,Hodan,0612345678,50,active\n" +
		",Orphan row,,,\n" +
		"Bile,Faadumo,,\"1,200.50\",\n"

	t.Run("no file", func(t *testing.T) {
		req, rec := newImportRequest(t, "/v1/students/import", token, "", "")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file":"this field is required"}`, rec.Body.String())
	})

	t.Run("invalid file", func(t *testing.T) {
		req, rec := newImportRequest(t, "/v1/students/import", token, "roster.csv", "name,phone\nAyaan,06\n")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing student name column")
	})

	t.Run("dry run", func(t *testing.T) {
		req, rec := newImportRequest(t, "/v1/students/import?dry_run=true", token, "roster.csv", roster)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp ImportResponse
		unmarshalBody(t, rec, &resp)
		assert.True(t, resp.DryRun)
		assert.Equal(t, 0, resp.Imported)
		assert.Equal(t, 1, resp.Dropped)
		require.Len(t, resp.Students, 2)
		assert.Equal(t, "1200.5", resp.Students[1].MonthlyFee.String())

		students, err := app.studentRepo.QueryStudents(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, students, "nothing is inserted")
	})

	t.Run("import", func(t *testing.T) {
		req, rec := newImportRequest(t, "/v1/students/import", token, "roster.csv", roster)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"imported":2,"dropped":1,"dry_run":false}`, rec.Body.String())

		students, err := app.studentRepo.QueryStudents(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})
}
