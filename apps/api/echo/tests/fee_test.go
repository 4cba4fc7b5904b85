package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/tests"
)

func Test_feeApi(t *testing.T) {
	app := setup(t)
	token := app.operatorToken(t)
	tuition := testutil.CreateFee(t, app.feeRepo, "Tuition")
	bus := testutil.CreateFee(t, app.feeRepo, "Bus")

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/fees", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "malformed filter", method: http.MethodGet, path: "/v1/fees", token: token, body: []byte(`{"search":`), wantCode: http.StatusBadRequest},
		{name: "Get all", method: http.MethodGet, path: "/v1/fees", token: token, wantData: marshalObj(t, []fee.Fee{bus, tuition})},
		{name: "search", method: http.MethodGet, path: "/v1/fees?search=TUI", token: token, wantData: marshalObj(t, []fee.Fee{tuition})},
		{name: "search (unknown)", method: http.MethodGet, path: "/v1/fees?search=lol", token: token, wantData: []byte("[]")},
		{name: "order by fee_name", method: http.MethodGet, path: "/v1/fees?ordering=fee_name", token: token, wantData: marshalObj(t, []fee.Fee{bus, tuition})},
		{name: "retrieve", method: http.MethodGet, path: "/v1/fees/" + itoa(tuition.ID), token: token, wantData: marshalObj(t, tuition)},
		{
			name: "retrieve (unknown)", method: http.MethodGet, path: "/v1/fees/999", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "fee not found"}),
		},
		{
			name: "retrieve (bad id)", method: http.MethodGet, path: "/v1/fees/lol", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "create: required name", method: http.MethodPost, path: "/v1/fees", token: token, body: []byte(`{"description":"x"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"fee_name":"this field is required"}`),
		},
		{
			name: "create: blank name", method: http.MethodPost, path: "/v1/fees", token: token, body: []byte(`{"fee_name":"   "}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"fee_name":"this field cannot be blank"}`),
		},
		{
			name: "update (unknown)", method: http.MethodPut, path: "/v1/fees/999", token: token, body: []byte(`{"fee_name":"Books"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "fee not found"}),
		},
	})

	t.Run("create & update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/fees", token, []byte(`{"fee_name":" Books ","description":" term 1 "}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created fee.Fee
		unmarshalBody(t, rec, &created)
		assert.Equal(t, "Books", created.Name)
		assert.Equal(t, "term 1", created.Description.String)

		req, rec = newAuthRequest(http.MethodPut, "/v1/fees/"+itoa(created.ID), token, []byte(`{"fee_name":"Books & Uniform"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated fee.Fee
		unmarshalBody(t, rec, &updated)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Books & Uniform", updated.Name)
		assert.False(t, updated.Description.Valid, "an empty description is cleared")
	})
}
