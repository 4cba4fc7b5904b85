package inmemdb

import (
	"context"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) DashboardStats(_ context.Context, _ ...core.DBExecutor) (report.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invoices := make([]invoice.Invoice, 0, len(repo.db.invoices))
	for _, inv := range repo.db.invoices {
		invoices = append(invoices, inv)
	}
	return report.ComputeStats(len(repo.db.students), invoices), nil
}
