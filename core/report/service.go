package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
)

const recentPaymentsLimit = 5

// cache keys
const (
	statsKey          = "report:stats"
	dashboardKey      = "report:dashboard"
	collectionsKey    = "report:collections"
	paymentMethodsKey = "report:payment-methods"
)

type (
	// Repository reads the aggregates precomputed by the store.
	Repository interface {
		DashboardStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
	}

	Service interface {
		Stats(ctx context.Context) (Stats, error)
		Dashboard(ctx context.Context) (Dashboard, error)
		Collections(ctx context.Context) ([]Collection, error)
		PaymentMethods(ctx context.Context) ([]MethodTotal, error)
		// ExportInvoices returns the invoices to export, newest first.
		ExportInvoices(ctx context.Context, filter *invoice.QueryFilter) ([]invoice.Invoice, error)
	}

	service struct {
		repo        Repository
		invoiceRepo invoice.Repository
		paymentRepo payment.Repository
		cache       *core.Cache
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, invoiceRepo invoice.Repository, paymentRepo payment.Repository, cache *core.Cache) Service {
	return &service{
		repo:        repo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		cache:       cache,
	}
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	if cached, ok := svc.cache.Get(statsKey); ok {
		return cached.(Stats), nil
	}
	ticket := svc.cache.Begin(core.ResourceStudents, core.ResourceInvoices, core.ResourceDashboard)
	stats, err := svc.repo.DashboardStats(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "reading dashboard stats")
	}
	svc.cache.SetFresh(statsKey, stats, ticket)
	return stats, nil
}

func (svc *service) Dashboard(ctx context.Context) (Dashboard, error) {
	if cached, ok := svc.cache.Get(dashboardKey); ok {
		return cached.(Dashboard), nil
	}
	ticket := svc.cache.Begin(
		core.ResourceStudents, core.ResourceFees, core.ResourceInvoices, core.ResourcePayments, core.ResourceDashboard,
	)

	stats, err := svc.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := svc.paymentRepo.QueryPayments(ctx, &payment.QueryFilter{Limit: recentPaymentsLimit}, nil)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying recent payments")
	}
	if recent == nil {
		recent = []payment.Payment{}
	}

	dash := Dashboard{Stats: stats, RecentPayments: recent}
	svc.cache.SetFresh(dashboardKey, dash, ticket)
	return dash, nil
}

func (svc *service) Collections(ctx context.Context) ([]Collection, error) {
	if cached, ok := svc.cache.Get(collectionsKey); ok {
		return cached.([]Collection), nil
	}
	ticket := svc.cache.Begin(core.ResourceInvoices)
	paid, err := svc.invoiceRepo.QueryInvoices(ctx, &invoice.QueryFilter{Status: invoice.StatusPaid}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying paid invoices")
	}
	collections := MonthlyCollections(paid)
	svc.cache.SetFresh(collectionsKey, collections, ticket)
	return collections, nil
}

func (svc *service) PaymentMethods(ctx context.Context) ([]MethodTotal, error) {
	if cached, ok := svc.cache.Get(paymentMethodsKey); ok {
		return cached.([]MethodTotal), nil
	}
	ticket := svc.cache.Begin(core.ResourcePayments)
	payments, err := svc.paymentRepo.QueryPayments(ctx, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	totals := PaymentMethodTotals(payments)
	svc.cache.SetFresh(paymentMethodsKey, totals, ticket)
	return totals, nil
}

func (svc *service) ExportInvoices(ctx context.Context, filter *invoice.QueryFilter) ([]invoice.Invoice, error) {
	invoices, err := svc.invoiceRepo.QueryInvoices(ctx, filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying invoices to export")
	}
	if len(invoices) == 0 {
		return nil, ErrNoExportData
	}
	return invoices, nil
}
