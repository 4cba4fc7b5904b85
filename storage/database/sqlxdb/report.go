package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/report"
)

type reportRepository struct {
	baseRepository
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{baseRepository{db: db}}
}

// DashboardStats reads the dashboard_stats view.
func (repo reportRepository) DashboardStats(ctx context.Context, exec ...core.DBExecutor) (report.Stats, error) {
	qb := psql.Select("total_students", "total_collected", "unpaid_invoices_count", "unpaid_amount").From("dashboard_stats")

	var row struct {
		TotalStudents       int             `db:"total_students"`
		TotalCollected      decimal.Decimal `db:"total_collected"`
		UnpaidInvoicesCount int             `db:"unpaid_invoices_count"`
		UnpaidAmount        decimal.Decimal `db:"unpaid_amount"`
	}
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return report.Stats{}, core.NewStoreError("reading dashboard stats", err)
	}
	return report.Stats{
		TotalStudents:       row.TotalStudents,
		TotalCollected:      row.TotalCollected,
		UnpaidInvoicesCount: row.UnpaidInvoicesCount,
		UnpaidAmount:        row.UnpaidAmount,
	}, nil
}
