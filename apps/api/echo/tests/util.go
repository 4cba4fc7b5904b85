package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/biilasha/biilasha/apps/api/echo"
	"github.com/biilasha/biilasha/assets"
	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
	"github.com/biilasha/biilasha/core/report"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/core/user"
	"github.com/biilasha/biilasha/services/email"
	"github.com/biilasha/biilasha/storage/database/inmem"
	"github.com/biilasha/biilasha/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	Server
	conf        *core.Config
	feeRepo     fee.Repository
	studentRepo student.Repository
	invoiceRepo invoice.Repository
	userRepo    user.Repository
}

// setup starts a server on a fresh in-memory store.
func setup(t *testing.T) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(assets.FS, core.NopLogger{}, true)
	emailsvc.ClearSentMessages()

	// set up DB & repos
	db := inmemdb.Open()
	app := testApp{
		conf:        conf,
		feeRepo:     inmemdb.NewFeeRepository(db),
		studentRepo: inmemdb.NewStudentRepository(db),
		invoiceRepo: inmemdb.NewInvoiceRepository(db),
		userRepo:    inmemdb.NewUserRepository(db),
	}
	paymentRepo := inmemdb.NewPaymentRepository(db)
	cache := core.NewCache(conf.Billing.CacheTTL)

	// set up server
	validate, translator := testutil.NewValidator()
	app.Server = NewServer(&Options{
		Conf:           conf,
		Logger:         core.NopLogger{},
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		FeeSvc:         fee.NewService(app.feeRepo, cache),
		StudentSvc:     student.NewService(app.studentRepo, cache),
		InvoiceSvc:     invoice.NewService(app.invoiceRepo, app.feeRepo, app.studentRepo, cache, conf.Billing),
		PaymentSvc:     payment.NewService(paymentRepo, app.invoiceRepo, inmemdb.NewTransactor(db), cache, conf.Billing),
		ReportSvc:      report.NewService(inmemdb.NewReportRepository(db), app.invoiceRepo, paymentRepo, cache),
		UserSvc:        user.NewServiceMock(app.userRepo, emailsvc.NewConsoleServiceMock(conf), conf),
	})
	return app
}

// operatorToken creates an active operator and returns a token of theirs.
func (app testApp) operatorToken(t *testing.T) string {
	t.Helper()
	usr := testutil.CreateUser(t, app.userRepo, "Amina", "amina@school.so", "Dug$4-Tribe9", true)
	return getToken(t, app.conf, usr)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	return newRawRequest(method, path, token, "application/json", &body)
}

func newRawRequest(method, path, token, contentType string, body io.Reader) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
