package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/payment"
)

var paymentColumns = []string{
	"p.id", "p.invoice_id", "p.payment_date", "p.payment_method", "p.amount_paid", "p.created_at",
	"s.student_name", "f.fee_name", "i.month_name",
}

var paymentOrderColumns = map[string]string{
	"id":             "p.id",
	"payment_date":   "p.payment_date",
	"payment_method": "p.payment_method",
	"amount_paid":    "p.amount_paid",
	"created_at":     "p.created_at",
	"student_name":   "s.student_name",
}

type paymentRow struct {
	ID            int             `db:"id"`
	InvoiceID     int             `db:"invoice_id"`
	PaymentDate   core.Date       `db:"payment_date"`
	PaymentMethod string          `db:"payment_method"`
	AmountPaid    decimal.Decimal `db:"amount_paid"`
	CreatedAt     time.Time       `db:"created_at"`
	StudentName   string          `db:"student_name"`
	FeeName       string          `db:"fee_name"`
	MonthName     string          `db:"month_name"`
}

func (r paymentRow) payment() payment.Payment {
	return payment.Payment{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		PaymentDate: r.PaymentDate,
		Method:      r.PaymentMethod,
		AmountPaid:  r.AmountPaid,
		CreatedAt:   r.CreatedAt.UTC(),
		StudentName: r.StudentName,
		FeeName:     r.FeeName,
		MonthName:   r.MonthName,
	}
}

type paymentRepository struct {
	baseRepository
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{baseRepository{db: db}}
}

func (repo paymentRepository) selectPayments() sq.SelectBuilder {
	return psql.Select(paymentColumns...).
		From("payments p").
		Join("invoices i ON i.id = p.invoice_id").
		Join("students s ON s.id = i.student_id").
		Join("fees f ON f.id = i.fee_id")
}

// CreatePayment returns the stored payment, without the joined fields.
func (repo paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	qb := psql.Insert("payments").
		Columns("invoice_id", "payment_date", "payment_method", "amount_paid", "created_at").
		Values(pmt.InvoiceID, pmt.PaymentDate, pmt.Method, pmt.AmountPaid, pmt.CreatedAt.UTC()).
		Suffix("RETURNING id, invoice_id, payment_date, payment_method, amount_paid, created_at")

	var row paymentRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return payment.Payment{}, core.NewStoreError("inserting payment", err)
	}
	return row.payment(), nil
}

func (repo paymentRepository) GetPaymentByID(ctx context.Context, id int, exec ...core.DBExecutor) (payment.Payment, error) {
	var row paymentRow
	if err := repo.get(ctx, exec, &row, repo.selectPayments().Where(sq.Eq{"p.id": id})); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment by ID")
	}
	return row.payment(), nil
}

func (repo paymentRepository) QueryPayments(
	ctx context.Context,
	filter *payment.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]payment.Payment, error) {
	qb := repo.selectPayments()
	if filter != nil {
		if filter.InvoiceID != 0 {
			qb = qb.Where(sq.Eq{"p.invoice_id": filter.InvoiceID})
		}
		if filter.StudentID != 0 {
			qb = qb.Where(sq.Eq{"i.student_id": filter.StudentID})
		}
		if filter.Method != "" {
			qb = qb.Where(sq.Eq{"p.payment_method": filter.Method})
		}
		if !filter.DateFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"p.payment_date": filter.DateFrom})
		}
		if !filter.DateTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"p.payment_date": filter.DateTo})
		}
		if filter.Limit > 0 {
			qb = qb.Limit(uint64(filter.Limit))
		}
	}
	qb = qb.OrderBy(orderBy(ordering, paymentOrderColumns, "p.created_at DESC", "p.id DESC")...)

	var rows []paymentRow
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("querying payments", err)
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.payment())
	}
	return payments, nil
}
