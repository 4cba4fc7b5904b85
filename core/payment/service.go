package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
)

var (
	ErrNotFound = errors.New("payment not found")

	errInvoiceNotFound = "invoice not found"
	errNothingDue      = "this invoice has no outstanding balance"
)

// Orderings maps the accepted `ordering` fields to their column.
var Orderings = map[string]string{
	"id":             "id",
	"payment_date":   "payment_date",
	"payment_method": "payment_method",
	"amount_paid":    "amount_paid",
	"created_at":     "created_at",
	"student_name":   "student_name",
}

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		GetPaymentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments applies AND operation on available QueryFilter fields.
		// Newest first unless ordered otherwise.
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Payment, error)
	}

	Service interface {
		Record(ctx context.Context, np NewPayment) (Receipt, error)
		GetByID(ctx context.Context, id int) (Payment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		Balance(ctx context.Context, invoiceID int) (Balance, error)
	}

	service struct {
		repo        Repository
		invoiceRepo invoice.Repository
		tx          core.Transactor
		cache       *core.Cache
		policy      string
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	invoiceRepo invoice.Repository,
	tx core.Transactor,
	cache *core.Cache,
	billing core.BillingConfig,
) Service {
	policy := billing.OverpaymentPolicy
	if policy == "" {
		policy = core.OverpaymentAccept
	}
	return &service{
		repo:        repo,
		invoiceRepo: invoiceRepo,
		tx:          tx,
		cache:       cache,
		policy:      policy,
	}
}

// Record inserts a payment and reconciles the invoice status with all the payments made against
// it, in a single transaction. The returned invoice is read back after the commit.
func (svc *service) Record(ctx context.Context, np NewPayment) (Receipt, error) {
	var pmt Payment
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		// concurrent payments of the invoice queue here, so each one sums the others
		inv, err := svc.invoiceRepo.LockInvoice(ctx, np.InvoiceID, exec)
		if err != nil {
			if errors.Cause(err) == invoice.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "invoice_id", Error: errInvoiceNotFound})
			}
			return errors.Wrap(err, "finding invoice by ID")
		}

		paid, err := svc.paidAmounts(ctx, inv.ID, exec)
		if err != nil {
			return err
		}
		amount, err := svc.amountToRecord(inv, paid, np.AmountPaid)
		if err != nil {
			return err
		}

		pmt = Payment{
			InvoiceID:   inv.ID,
			PaymentDate: core.Today(),
			Method:      MethodCash,
			AmountPaid:  amount,
			CreatedAt:   time.Now().UTC(),
		}
		if np.PaymentDate != nil && !np.PaymentDate.IsZero() {
			pmt.PaymentDate = *np.PaymentDate
		}
		if np.Method != "" {
			pmt.Method = np.Method
		}
		if pmt, err = svc.repo.CreatePayment(ctx, pmt, exec); err != nil {
			return errors.Wrap(err, "creating payment")
		}

		// reconcile against every payment now stored for the invoice
		if paid, err = svc.paidAmounts(ctx, inv.ID, exec); err != nil {
			return err
		}
		if status := invoice.RecomputeStatus(inv, paid...); status != inv.Status {
			if err = svc.invoiceRepo.UpdateInvoiceStatus(ctx, inv.ID, status, exec); err != nil {
				return errors.Wrap(err, "updating invoice status")
			}
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	svc.cache.Invalidate(core.ResourcePayments, core.ResourceInvoices, core.ResourceDashboard)

	inv, err := svc.invoiceRepo.GetInvoiceByID(ctx, np.InvoiceID)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "re-reading invoice")
	}
	if full, err := svc.repo.GetPaymentByID(ctx, pmt.ID); err == nil {
		pmt = full
	}
	return Receipt{Payment: pmt, Invoice: inv}, nil
}

// amountToRecord applies the over-payment policy to the requested amount.
// No amount requested means the outstanding balance.
func (svc *service) amountToRecord(inv invoice.Invoice, paid []decimal.Decimal, requested *decimal.Decimal) (decimal.Decimal, error) {
	outstanding := invoice.Outstanding(inv, paid...)
	amountErr := func(msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "amount_paid", Error: msg})
	}

	if requested == nil || requested.IsZero() {
		if outstanding.IsZero() {
			return decimal.Zero, amountErr(errNothingDue)
		}
		return outstanding, nil
	}

	amount := *requested
	switch svc.policy {
	case core.OverpaymentCap:
		if outstanding.IsZero() {
			return decimal.Zero, amountErr(errNothingDue)
		}
		if amount.GreaterThan(outstanding) {
			amount = outstanding
		}
	case core.OverpaymentReject:
		if amount.GreaterThan(outstanding) {
			return decimal.Zero, amountErr(fmt.Sprintf("amount exceeds the outstanding balance of %s", outstanding.StringFixed(2)))
		}
	}
	return amount, nil
}

func (svc *service) paidAmounts(ctx context.Context, invoiceID int, exec core.DBExecutor) ([]decimal.Decimal, error) {
	payments, err := svc.repo.QueryPayments(ctx, &QueryFilter{InvoiceID: invoiceID}, nil, exec)
	if err != nil {
		return nil, errors.Wrap(err, "querying invoice payments")
	}
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.AmountPaid)
	}
	return amounts, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter, core.MapOrderings(ordering, Orderings))
}

func (svc *service) Balance(ctx context.Context, invoiceID int) (Balance, error) {
	inv, err := svc.invoiceRepo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return Balance{}, errors.Wrap(err, "finding invoice by ID")
	}
	paid, err := svc.paidAmounts(ctx, inv.ID, nil)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		InvoiceID:   inv.ID,
		Amount:      inv.Amount,
		Paid:        invoice.TotalPaid(paid...),
		Outstanding: invoice.Outstanding(inv, paid...),
		Status:      inv.Status,
	}, nil
}
