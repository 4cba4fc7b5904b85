package inmemdb

import (
	"context"
	"fmt"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

// join fills the student, fee & month names. Must be called with the lock held.
func (repo *paymentRepository) join(pmt payment.Payment) payment.Payment {
	inv := repo.db.invoices[pmt.InvoiceID]
	pmt.StudentName = repo.db.students[inv.StudentID].Name
	pmt.FeeName = repo.db.fees[inv.FeeID].Name
	pmt.MonthName = inv.MonthName
	return pmt
}

func (repo *paymentRepository) CreatePayment(_ context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	defer repo.db.lockWrites(exec)()

	if _, ok := repo.db.invoices[pmt.InvoiceID]; !ok {
		return payment.Payment{}, core.NewStoreError("inserting payment", fmt.Errorf("invoice %d does not exist", pmt.InvoiceID))
	}
	pmt.ID = repo.db.nextID("payments")
	pmt.StudentName, pmt.FeeName, pmt.MonthName = "", "", ""
	repo.db.payments[pmt.ID] = pmt
	return pmt, nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id int, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if pmt, ok := repo.db.payments[id]; ok {
		return repo.join(pmt), nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(
	_ context.Context,
	filter *payment.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	payments := make([]payment.Payment, 0, len(repo.db.payments))
	for _, pmt := range repo.db.payments {
		if filter != nil && !repo.match(pmt, filter) {
			continue
		}
		payments = append(payments, repo.join(pmt))
	}

	sortRows(payments, ordering, map[string]func(i, j int) int{
		"id":             func(i, j int) int { return compareInts(payments[i].ID, payments[j].ID) },
		"payment_date":   func(i, j int) int { return compareTimes(payments[i].PaymentDate.Time, payments[j].PaymentDate.Time) },
		"payment_method": func(i, j int) int { return compareStrings(payments[i].Method, payments[j].Method) },
		"amount_paid":    func(i, j int) int { return compareDecimals(payments[i].AmountPaid, payments[j].AmountPaid) },
		"created_at":     func(i, j int) int { return compareTimes(payments[i].CreatedAt, payments[j].CreatedAt) },
		"student_name":   func(i, j int) int { return compareStrings(payments[i].StudentName, payments[j].StudentName) },
	}, newestFirst...)

	if filter != nil && filter.Limit > 0 && len(payments) > filter.Limit {
		payments = payments[:filter.Limit]
	}
	return payments, nil
}

func (repo *paymentRepository) match(pmt payment.Payment, filter *payment.QueryFilter) bool {
	switch {
	case filter.InvoiceID != 0 && pmt.InvoiceID != filter.InvoiceID:
		return false
	case filter.StudentID != 0 && repo.db.invoices[pmt.InvoiceID].StudentID != filter.StudentID:
		return false
	case filter.Method != "" && pmt.Method != filter.Method:
		return false
	case !filter.DateFrom.IsZero() && pmt.PaymentDate.Before(filter.DateFrom.Time):
		return false
	case !filter.DateTo.IsZero() && pmt.PaymentDate.After(filter.DateTo.Time):
		return false
	}
	return true
}
