package inmemdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
	"github.com/biilasha/biilasha/core/student"
)

type fixture struct {
	db       *DB
	students student.Repository
	invoices invoice.Repository
	payments payment.Repository
	std      student.Student
	inv      invoice.Invoice
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	db := Open()
	fx := fixture{
		db:       db,
		students: NewStudentRepository(db),
		invoices: NewInvoiceRepository(db),
		payments: NewPaymentRepository(db),
	}
	fe, err := NewFeeRepository(db).CreateFee(ctx, fee.Fee{Name: "Tuition", CreatedAt: now})
	require.NoError(t, err)
	fx.std, err = fx.students.CreateStudent(ctx, student.Student{
		Name: "Ayaan", ParentName: "Hodan", MonthlyFee: decimal.NewFromInt(50), Status: student.StatusActive, CreatedAt: now,
	})
	require.NoError(t, err)

	period := invoice.NewPeriod(2025, time.March)
	created, err := fx.invoices.CreateInvoices(ctx, []invoice.Invoice{{
		StudentID: fx.std.ID, FeeID: fe.ID, Amount: fx.std.MonthlyFee, Period: period,
		MonthName: period.MonthName(), DueDate: period.LastDay(), Status: invoice.StatusUnpaid, CreatedAt: now,
	}})
	require.NoError(t, err)
	fx.inv = created[0]

	_, err = fx.payments.CreatePayment(ctx, payment.Payment{
		InvoiceID: fx.inv.ID, PaymentDate: core.Today(), Method: payment.MethodCash, AmountPaid: decimal.NewFromInt(20), CreatedAt: now,
	})
	require.NoError(t, err)
	return fx
}

func TestJoins(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	inv, err := fx.invoices.GetInvoiceByID(ctx, fx.inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ayaan", inv.StudentName)
	assert.Equal(t, "Tuition", inv.FeeName)

	payments, err := fx.payments.QueryPayments(ctx, &payment.QueryFilter{StudentID: fx.std.ID}, nil)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "March 2025", payments[0].MonthName)
}

func TestCreateInvoices_MissingStudent(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.invoices.CreateInvoices(ctx, []invoice.Invoice{
		{StudentID: fx.std.ID, FeeID: fx.inv.FeeID},
		{StudentID: 404, FeeID: fx.inv.FeeID},
	})
	_, ok := core.AsStoreError(err)
	assert.True(t, ok)

	invoices, err := fx.invoices.QueryInvoices(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, invoices, 1, "no invoice of a failed batch is created")
}

func TestDeleteStudent_Cascades(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	impact, err := fx.students.CountDependents(ctx, fx.std.ID)
	require.NoError(t, err)
	assert.Equal(t, student.DeletionImpact{StudentID: fx.std.ID, Invoices: 1, Payments: 1}, impact)

	require.NoError(t, fx.students.DeleteStudent(ctx, fx.std.ID))
	assert.Equal(t, student.ErrNotFound, fx.students.DeleteStudent(ctx, fx.std.ID))

	_, err = fx.invoices.GetInvoiceByID(ctx, fx.inv.ID)
	assert.Equal(t, invoice.ErrNotFound, err)
	payments, err := fx.payments.QueryPayments(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestTransactor_RestoresOnError(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	fnErr := errors.New("boom")
	err := NewTransactor(fx.db).WithinTx(ctx, func(exec core.DBExecutor) error {
		if err := fx.invoices.UpdateInvoiceStatus(ctx, fx.inv.ID, invoice.StatusPaid, exec); err != nil {
			return err
		}
		return fnErr
	})
	assert.Equal(t, fnErr, err)

	inv, err := fx.invoices.GetInvoiceByID(ctx, fx.inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusUnpaid, inv.Status)
}

func TestTransactor_RollbackKeepsOutsideWrites(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	inTx, release := make(chan struct{}), make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- NewTransactor(fx.db).WithinTx(ctx, func(exec core.DBExecutor) error {
			if err := fx.invoices.UpdateInvoiceStatus(ctx, fx.inv.ID, invoice.StatusPaid, exec); err != nil {
				return err
			}
			close(inTx)
			<-release
			return errors.New("boom")
		})
	}()
	<-inTx

	created := make(chan student.Student, 1)
	go func() {
		std, err := fx.students.CreateStudent(ctx, student.Student{Name: "Cawo", Status: student.StatusActive})
		assert.NoError(t, err)
		created <- std
	}()

	select {
	case <-created:
		t.Fatal("write outside the transaction did not wait for it")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.EqualError(t, <-txDone, "boom")

	std := <-created
	got, err := fx.students.GetStudentByID(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cawo", got.Name)

	inv, err := fx.invoices.GetInvoiceByID(ctx, fx.inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusUnpaid, inv.Status)
}

func TestQueryStudents_Ordering(t *testing.T) {
	db := Open()
	repo := NewStudentRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, name := range []string{"bile", "Ayaan", "Cawo"} {
		_, err := repo.CreateStudent(ctx, student.Student{Name: name, Status: student.StatusActive, CreatedAt: now.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "newest first", want: []string{"Cawo", "Ayaan", "bile"}},
		{name: "by name", ordering: []core.DBOrdering{{Field: "student_name", Ascending: true}}, want: []string{"Ayaan", "bile", "Cawo"}},
		{name: "unknown field", ordering: []core.DBOrdering{{Field: "nope"}}, want: []string{"Cawo", "Ayaan", "bile"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := repo.QueryStudents(ctx, nil, tt.ordering)
			require.NoError(t, err)
			names := make([]string, 0, len(students))
			for _, s := range students {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
