package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/report"
)

var exportWriters = map[string]struct {
	contentType string
	write       func(io.Writer, []invoice.Invoice) error
}{
	report.FormatCSV:  {"text/csv; charset=utf-8", report.WriteCSV},
	report.FormatXLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report.WriteXLSX},
}

// ExportRequest selects the invoices to export. Month accepts "2025-03" or "March 2025".
type ExportRequest struct {
	Format string `query:"format"`
	Month  string `query:"month"`
	invoice.QueryFilter
}

type reportApi struct {
	svc report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt)
	rg.GET("/stats", api.stats)
	rg.GET("/dashboard", api.dashboard)
	rg.GET("/collections", api.collections)
	rg.GET("/payment-methods", api.paymentMethods)
	rg.GET("/export", api.export)
}

func (api *reportApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *reportApi) collections(ctx echo.Context) error {
	collections, err := api.svc.Collections(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading monthly collections")
	}
	if collections == nil {
		collections = []report.Collection{}
	}
	return ctx.JSON(http.StatusOK, collections)
}

func (api *reportApi) paymentMethods(ctx echo.Context) error {
	totals, err := api.svc.PaymentMethods(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading payment method totals")
	}
	if totals == nil {
		totals = []report.MethodTotal{}
	}
	return ctx.JSON(http.StatusOK, totals)
}

// export sends the invoices matching the filters as a csv (default) or xlsx attachment.
func (api *reportApi) export(ctx echo.Context) error {
	var req ExportRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to ExportRequest")
	}
	format := core.CleanString(req.Format, true /* lower */)
	if format == "" {
		format = report.FormatCSV
	}
	writer, ok := exportWriters[format]
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "format", Error: "format must be one of [csv xlsx]"})
	}

	filter := req.QueryFilter
	if req.Month != "" {
		filter.MonthName = req.Month
	}
	filter.Clean()

	invoices, err := api.svc.ExportInvoices(ctx.Request().Context(), &filter)
	if err != nil {
		return errors.Wrap(err, "exporting invoices")
	}

	var buf bytes.Buffer
	if err = writer.write(&buf, invoices); err != nil {
		return errors.Wrapf(err, "writing %s export", format)
	}
	filename := report.ExportFilename(time.Now(), format)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, writer.contentType, buf.Bytes())
}
