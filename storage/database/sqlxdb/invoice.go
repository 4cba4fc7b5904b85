package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
)

var invoiceColumns = []string{
	"i.id", "i.student_id", "i.fee_id", "i.amount", "i.period_year", "i.period_month", "i.month_name",
	"i.due_date", "i.status", "i.created_at", "s.student_name", "f.fee_name",
}

var invoiceOrderColumns = map[string]string{
	"id":           "i.id",
	"amount":       "i.amount",
	"month_name":   "i.month_name",
	"due_date":     "i.due_date",
	"status":       "i.status",
	"created_at":   "i.created_at",
	"student_name": "s.student_name",
	"fee_name":     "f.fee_name",
}

type invoiceRow struct {
	ID          int             `db:"id"`
	StudentID   int             `db:"student_id"`
	FeeID       int             `db:"fee_id"`
	Amount      decimal.Decimal `db:"amount"`
	PeriodYear  int             `db:"period_year"`
	PeriodMonth int             `db:"period_month"`
	MonthName   string          `db:"month_name"`
	DueDate     core.Date       `db:"due_date"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	StudentName string          `db:"student_name"`
	FeeName     string          `db:"fee_name"`
}

func (r invoiceRow) invoice() invoice.Invoice {
	return invoice.Invoice{
		ID:          r.ID,
		StudentID:   r.StudentID,
		FeeID:       r.FeeID,
		Amount:      r.Amount,
		Period:      invoice.NewPeriod(r.PeriodYear, time.Month(r.PeriodMonth)),
		MonthName:   r.MonthName,
		DueDate:     r.DueDate,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC(),
		StudentName: r.StudentName,
		FeeName:     r.FeeName,
	}
}

type invoiceRepository struct {
	baseRepository
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *sqlx.DB) invoice.Repository {
	return &invoiceRepository{baseRepository{db: db}}
}

func (repo invoiceRepository) selectInvoices() sq.SelectBuilder {
	return psql.Select(invoiceColumns...).
		From("invoices i").
		Join("students s ON s.id = i.student_id").
		Join("fees f ON f.id = i.fee_id")
}

// CreateInvoices returns the given invoices with their new IDs.
func (repo invoiceRepository) CreateInvoices(ctx context.Context, invoices []invoice.Invoice, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	if len(invoices) == 0 {
		return []invoice.Invoice{}, nil
	}
	qb := psql.Insert("invoices").
		Columns(
			"student_id", "fee_id", "amount", "period_year", "period_month", "month_name", "due_date", "status", "created_at",
		).
		Suffix("RETURNING id")
	for _, inv := range invoices {
		qb = qb.Values(
			inv.StudentID, inv.FeeID, inv.Amount, inv.Period.Year, int(inv.Period.Month), inv.MonthName,
			inv.DueDate, inv.Status, inv.CreatedAt.UTC(),
		)
	}

	var ids []int
	if err := repo.selectAll(ctx, exec, &ids, qb); err != nil {
		return nil, core.NewStoreError("inserting invoices", err)
	}
	if len(ids) != len(invoices) {
		return nil, core.NewStoreError("inserting invoices", errors.Errorf("%d invoices inserted, %d expected", len(ids), len(invoices)))
	}

	created := make([]invoice.Invoice, len(invoices))
	for i, inv := range invoices {
		inv.ID = ids[i]
		created[i] = inv
	}
	return created, nil
}

func (repo invoiceRepository) GetInvoiceByID(ctx context.Context, id int, exec ...core.DBExecutor) (invoice.Invoice, error) {
	var row invoiceRow
	if err := repo.get(ctx, exec, &row, repo.selectInvoices().Where(sq.Eq{"i.id": id})); err != nil {
		return invoice.Invoice{}, trapNoRowsErr(err, invoice.ErrNotFound, "finding invoice by ID")
	}
	return row.invoice(), nil
}

// LockInvoice takes the row lock concurrent payments of the invoice wait on.
func (repo invoiceRepository) LockInvoice(ctx context.Context, id int, exec core.DBExecutor) (invoice.Invoice, error) {
	var row invoiceRow
	qb := repo.selectInvoices().Where(sq.Eq{"i.id": id}).Suffix("FOR UPDATE OF i")
	if err := repo.get(ctx, []core.DBExecutor{exec}, &row, qb); err != nil {
		return invoice.Invoice{}, trapNoRowsErr(err, invoice.ErrNotFound, "locking invoice")
	}
	return row.invoice(), nil
}

func (repo invoiceRepository) QueryInvoices(
	ctx context.Context,
	filter *invoice.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]invoice.Invoice, error) {
	qb := repo.selectInvoices()
	if filter != nil {
		if filter.Search != "" {
			val := likeValue(filter.Search)
			qb = qb.Where(sq.Or{sq.ILike{"s.student_name": val}, sq.ILike{"f.fee_name": val}})
		}
		if filter.Status != "" {
			qb = qb.Where(sq.Eq{"i.status": filter.Status})
		}
		if filter.FeeID != 0 {
			qb = qb.Where(sq.Eq{"i.fee_id": filter.FeeID})
		}
		if filter.StudentID != 0 {
			qb = qb.Where(sq.Eq{"i.student_id": filter.StudentID})
		}
		if !filter.Period.IsZero() {
			qb = qb.Where(sq.Eq{"i.period_year": filter.Period.Year, "i.period_month": int(filter.Period.Month)})
		}
		if filter.MonthName != "" {
			qb = qb.Where(sq.Eq{"i.month_name": filter.MonthName})
		}
	}
	qb = qb.OrderBy(orderBy(ordering, invoiceOrderColumns, "i.created_at DESC", "i.id DESC")...)

	var rows []invoiceRow
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("querying invoices", err)
	}
	invoices := make([]invoice.Invoice, 0, len(rows))
	for _, r := range rows {
		invoices = append(invoices, r.invoice())
	}
	return invoices, nil
}

func (repo invoiceRepository) UpdateInvoiceStatus(ctx context.Context, id int, status string, exec ...core.DBExecutor) error {
	res, err := repo.exec(ctx, exec, psql.Update("invoices").Set("status", status).Where(sq.Eq{"id": id}))
	if err != nil {
		return core.NewStoreError("updating invoice status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStoreError("updating invoice status", err)
	}
	if n == 0 {
		return invoice.ErrNotFound
	}
	return nil
}

func (repo invoiceRepository) QueryPeriods(ctx context.Context, exec ...core.DBExecutor) ([]invoice.Period, error) {
	qb := psql.Select("period_year", "period_month").
		Distinct().
		From("invoices").
		OrderBy("period_year DESC", "period_month DESC")

	var rows []struct {
		Year  int `db:"period_year"`
		Month int `db:"period_month"`
	}
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("querying billing periods", err)
	}
	periods := make([]invoice.Period, 0, len(rows))
	for _, r := range rows {
		periods = append(periods, invoice.NewPeriod(r.Year, time.Month(r.Month)))
	}
	return periods, nil
}
