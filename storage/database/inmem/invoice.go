package inmemdb

import (
	"context"
	"fmt"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
)

type invoiceRepository struct {
	db *DB
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *DB) invoice.Repository {
	return &invoiceRepository{db: db}
}

// join fills the student & fee names. Must be called with the lock held.
func (repo *invoiceRepository) join(inv invoice.Invoice) invoice.Invoice {
	inv.StudentName = repo.db.students[inv.StudentID].Name
	inv.FeeName = repo.db.fees[inv.FeeID].Name
	return inv
}

func (repo *invoiceRepository) CreateInvoices(_ context.Context, invoices []invoice.Invoice, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	defer repo.db.lockWrites(exec)()

	// check all references first: either all are created or none
	for _, inv := range invoices {
		if _, ok := repo.db.students[inv.StudentID]; !ok {
			return nil, core.NewStoreError("inserting invoices", fmt.Errorf("student %d does not exist", inv.StudentID))
		}
		if _, ok := repo.db.fees[inv.FeeID]; !ok {
			return nil, core.NewStoreError("inserting invoices", fmt.Errorf("fee %d does not exist", inv.FeeID))
		}
	}

	created := make([]invoice.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		inv.ID = repo.db.nextID("invoices")
		inv.StudentName, inv.FeeName = "", ""
		repo.db.invoices[inv.ID] = inv
		created = append(created, repo.join(inv))
	}
	return created, nil
}

func (repo *invoiceRepository) GetInvoiceByID(_ context.Context, id int, _ ...core.DBExecutor) (invoice.Invoice, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if inv, ok := repo.db.invoices[id]; ok {
		return repo.join(inv), nil
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

// LockInvoice is GetInvoiceByID: transactions are already serialized by the Transactor.
func (repo *invoiceRepository) LockInvoice(ctx context.Context, id int, exec core.DBExecutor) (invoice.Invoice, error) {
	return repo.GetInvoiceByID(ctx, id, exec)
}

func (repo *invoiceRepository) QueryInvoices(
	_ context.Context,
	filter *invoice.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]invoice.Invoice, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invoices := make([]invoice.Invoice, 0, len(repo.db.invoices))
	for _, inv := range repo.db.invoices {
		inv = repo.join(inv)
		if filter != nil && !matchInvoice(inv, filter) {
			continue
		}
		invoices = append(invoices, inv)
	}

	sortRows(invoices, ordering, map[string]func(i, j int) int{
		"id":           func(i, j int) int { return compareInts(invoices[i].ID, invoices[j].ID) },
		"amount":       func(i, j int) int { return compareDecimals(invoices[i].Amount, invoices[j].Amount) },
		"month_name":   func(i, j int) int { return compareStrings(invoices[i].MonthName, invoices[j].MonthName) },
		"due_date":     func(i, j int) int { return compareTimes(invoices[i].DueDate.Time, invoices[j].DueDate.Time) },
		"status":       func(i, j int) int { return compareStrings(invoices[i].Status, invoices[j].Status) },
		"created_at":   func(i, j int) int { return compareTimes(invoices[i].CreatedAt, invoices[j].CreatedAt) },
		"student_name": func(i, j int) int { return compareStrings(invoices[i].StudentName, invoices[j].StudentName) },
		"fee_name":     func(i, j int) int { return compareStrings(invoices[i].FeeName, invoices[j].FeeName) },
	}, newestFirst...)
	return invoices, nil
}

func matchInvoice(inv invoice.Invoice, filter *invoice.QueryFilter) bool {
	switch {
	case filter.Search != "" && !contains(filter.Search, inv.StudentName, inv.FeeName):
		return false
	case filter.Status != "" && inv.Status != filter.Status:
		return false
	case filter.FeeID != 0 && inv.FeeID != filter.FeeID:
		return false
	case filter.StudentID != 0 && inv.StudentID != filter.StudentID:
		return false
	case !filter.Period.IsZero() && inv.Period != filter.Period:
		return false
	case filter.MonthName != "" && inv.MonthName != filter.MonthName:
		return false
	}
	return true
}

func (repo *invoiceRepository) UpdateInvoiceStatus(_ context.Context, id int, status string, exec ...core.DBExecutor) error {
	defer repo.db.lockWrites(exec)()

	inv, ok := repo.db.invoices[id]
	if !ok {
		return invoice.ErrNotFound
	}
	inv.Status = status
	repo.db.invoices[id] = inv
	return nil
}

func (repo *invoiceRepository) QueryPeriods(_ context.Context, _ ...core.DBExecutor) ([]invoice.Period, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[invoice.Period]bool)
	periods := make([]invoice.Period, 0)
	for _, inv := range repo.db.invoices {
		if !seen[inv.Period] {
			seen[inv.Period] = true
			periods = append(periods, inv.Period)
		}
	}
	sortRows(periods, nil, map[string]func(i, j int) int{
		"period": func(i, j int) int {
			if periods[i] == periods[j] {
				return 0
			}
			if periods[i].Before(periods[j]) {
				return -1
			}
			return 1
		},
	}, core.DBOrdering{Field: "period"})
	return periods, nil
}
