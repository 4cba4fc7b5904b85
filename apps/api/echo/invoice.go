package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
)

type invoiceApi struct {
	svc        invoice.Service
	paymentSvc payment.Service
	validate   *validator.Validate
}

func registerInvoiceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc invoice.Service,
	paymentSvc payment.Service,
	validate *validator.Validate,
) {
	api := invoiceApi{svc: svc, paymentSvc: paymentSvc, validate: validate}

	ig := g.Group("/invoices", jwt)
	ig.GET("", api.query)
	ig.GET("/months", api.months)
	ig.POST("/generate", api.generate)
	ig.POST("/generate/custom", api.generateCustom)

	dg := ig.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/payments", api.payments)
	dg.GET("/balance", api.balance)
}

func (api *invoiceApi) bindGenerateRequest(ctx echo.Context, custom bool) (invoice.GenerateRequest, error) {
	var data invoice.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to GenerateRequest")
	}
	return data, data.Validate(api.validate, custom)
}

// generate invoices every active student for a fee & month.
func (api *invoiceApi) generate(ctx echo.Context) error {
	data, err := api.bindGenerateRequest(ctx, false)
	if err != nil {
		return err
	}
	res, err := api.svc.QuickGenerate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating invoices")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// generateCustom invoices the selected students, active or not.
func (api *invoiceApi) generateCustom(ctx echo.Context) error {
	data, err := api.bindGenerateRequest(ctx, true)
	if err != nil {
		return err
	}
	res, err := api.svc.CustomGenerate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating custom invoices")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *invoiceApi) query(ctx echo.Context) error {
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	invoices, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *invoiceApi) months(ctx echo.Context) error {
	months, err := api.svc.Months(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing billing months")
	}
	if months == nil {
		months = []invoice.Month{}
	}
	return ctx.JSON(http.StatusOK, months)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	inv, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding invoice by ID")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) payments(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding invoice by ID")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	payments, err := api.paymentSvc.Query(ctx.Request().Context(), &payment.QueryFilter{InvoiceID: id}, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invoice payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *invoiceApi) balance(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	bal, err := api.paymentSvc.Balance(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "computing invoice balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}
