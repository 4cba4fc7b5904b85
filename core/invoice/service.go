package invoice

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/core/student"
)

var (
	ErrNotFound = errors.New("invoice not found")

	// generation errors
	errNoActiveStudents = errors.New("no active students found")
	errAllInvoicesExist = errors.New("all invoices already exist for this fee and month")
	errNothingToBill    = errors.New("none of the students has a monthly fee to invoice")
	errFeeNotFound      = "fee not found"
	errStudentNotFound  = "student not found"
	errSelectStudents   = "select at least one student"
	errInvalidPeriod    = "invalid billing month"
)

// Orderings maps the accepted `ordering` fields to their column.
var Orderings = map[string]string{
	"id":           "id",
	"amount":       "amount",
	"month_name":   "month_name",
	"due_date":     "due_date",
	"status":       "status",
	"created_at":   "created_at",
	"student_name": "student_name",
	"fee_name":     "fee_name",
}

type (
	Repository interface {
		// CreateInvoices inserts all invoices in a single batch: either all are created or none.
		CreateInvoices(ctx context.Context, invoices []Invoice, exec ...core.DBExecutor) ([]Invoice, error)
		GetInvoiceByID(ctx context.Context, id int, exec ...core.DBExecutor) (Invoice, error)
		// LockInvoice reads the invoice and locks its row until the end of exec's transaction.
		LockInvoice(ctx context.Context, id int, exec core.DBExecutor) (Invoice, error)
		// QueryInvoices applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the student or fee name.
		// Newest first unless ordered otherwise.
		QueryInvoices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Invoice, error)
		UpdateInvoiceStatus(ctx context.Context, id int, status string, exec ...core.DBExecutor) error
		// QueryPeriods returns the distinct billing periods invoiced, newest first.
		QueryPeriods(ctx context.Context, exec ...core.DBExecutor) ([]Period, error)
	}

	Service interface {
		QuickGenerate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
		CustomGenerate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
		Generate(ctx context.Context, req GenerateRequest, target Target) (GenerateResult, error)
		GetByID(ctx context.Context, id int) (Invoice, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error)
		Months(ctx context.Context) ([]Month, error)
	}

	service struct {
		repo        Repository
		feeRepo     fee.Repository
		studentRepo student.Repository
		cache       *core.Cache
		billing     core.BillingConfig
	}
)

// Month is a billing period as listed to operators.
type Month struct {
	Period    Period `json:"period"`
	Key       string `json:"key"`
	MonthName string `json:"month_name"`
}

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	feeRepo fee.Repository,
	studentRepo student.Repository,
	cache *core.Cache,
	billing core.BillingConfig,
) Service {
	return &service{
		repo:        repo,
		feeRepo:     feeRepo,
		studentRepo: studentRepo,
		cache:       cache,
		billing:     billing,
	}
}

// QuickGenerate invoices every active student, skipping those already invoiced for the fee & month.
func (svc *service) QuickGenerate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	return svc.Generate(ctx, req, AllActive())
}

// CustomGenerate invoices the students selected in req.StudentIDs.
// Existing invoices for the fee & month are only skipped when billing.dedupeCustomGenerate is on.
func (svc *service) CustomGenerate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	return svc.Generate(ctx, req, Students(req.StudentIDs...))
}

func (svc *service) Generate(ctx context.Context, req GenerateRequest, target Target) (GenerateResult, error) {
	period := req.Period()
	if !period.Valid() {
		return GenerateResult{}, core.NewValidationError(nil, core.FieldError{Field: "month", Error: errInvalidPeriod})
	}
	if !target.IsAllActive() && len(target.StudentIDs()) == 0 {
		return GenerateResult{}, core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: errSelectStudents})
	}
	dueDate := req.EffectiveDueDate()
	monthName := period.MonthName()

	// resolve the fee & the students, fresh from the store
	fe, err := svc.feeRepo.GetFeeByID(ctx, req.FeeID)
	if err != nil {
		if errors.Cause(err) == fee.ErrNotFound {
			return GenerateResult{}, core.NewValidationError(nil, core.FieldError{Field: "fee_id", Error: errFeeNotFound})
		}
		return GenerateResult{}, errors.Wrap(err, "finding fee by ID")
	}
	students, err := svc.resolveStudents(ctx, target)
	if err != nil {
		return GenerateResult{}, err
	}

	now := time.Now().UTC()
	candidates := make([]Invoice, 0, len(students))
	var waived int
	for _, std := range students {
		// an invoice of zero could never be settled by a payment
		if !std.MonthlyFee.IsPositive() {
			waived++
			continue
		}
		candidates = append(candidates, Invoice{
			StudentID:   std.ID,
			FeeID:       fe.ID,
			Amount:      std.MonthlyFee,
			Period:      period,
			MonthName:   monthName,
			DueDate:     dueDate,
			Status:      StatusUnpaid,
			CreatedAt:   now,
			StudentName: std.Name,
			FeeName:     fe.Name,
		})
	}

	var skipped int
	if target.IsAllActive() || svc.billing.DedupeCustomGenerate {
		if candidates, skipped, err = svc.dropExisting(ctx, candidates, fe.ID, monthName); err != nil {
			return GenerateResult{}, err
		}
		if len(candidates) == 0 && skipped > 0 {
			return GenerateResult{}, core.NewValidationError(errAllInvoicesExist)
		}
	}
	if len(candidates) == 0 {
		return GenerateResult{}, core.NewValidationError(errNothingToBill)
	}

	created, err := svc.repo.CreateInvoices(ctx, candidates)
	if err != nil {
		return GenerateResult{}, errors.Wrap(err, "creating invoices")
	}
	svc.cache.Invalidate(core.ResourceInvoices, core.ResourceDashboard)

	return GenerateResult{
		Created:   len(created),
		Skipped:   skipped,
		Waived:    waived,
		MonthName: monthName,
		DueDate:   dueDate,
		Invoices:  created,
	}, nil
}

func (svc *service) resolveStudents(ctx context.Context, target Target) ([]student.Student, error) {
	if target.IsAllActive() {
		students, err := svc.studentRepo.QueryStudents(
			ctx,
			&student.QueryFilter{Status: student.StatusActive},
			[]core.DBOrdering{{Field: "student_name", Ascending: true}},
		)
		if err != nil {
			return nil, errors.Wrap(err, "querying active students")
		}
		if len(students) == 0 {
			return nil, core.NewValidationError(errNoActiveStudents)
		}
		return students, nil
	}

	// a selection is a set: one invoice per selected student
	ids := uniqueIDs(target.StudentIDs())
	students, err := svc.studentRepo.GetStudentsByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding students by ID")
	}
	if len(students) != len(ids) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: errStudentNotFound})
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

// dropExisting removes the candidates already invoiced for the fee & month.
func (svc *service) dropExisting(ctx context.Context, candidates []Invoice, feeID int, monthName string) ([]Invoice, int, error) {
	existing, err := svc.repo.QueryInvoices(ctx, &QueryFilter{FeeID: feeID, MonthName: monthName}, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying existing invoices")
	}
	invoiced := make(map[Key]bool, len(existing))
	for _, inv := range existing {
		invoiced[inv.Key()] = true
	}

	kept := candidates[:0]
	for _, inv := range candidates {
		if !invoiced[inv.Key()] {
			kept = append(kept, inv)
		}
	}
	return kept, len(candidates) - len(kept), nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, filter, core.MapOrderings(ordering, Orderings))
}

// Months lists the billing periods invoiced so far, newest first.
func (svc *service) Months(ctx context.Context) ([]Month, error) {
	periods, err := svc.repo.QueryPeriods(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying billing periods")
	}
	months := make([]Month, 0, len(periods))
	for _, p := range periods {
		months = append(months, Month{Period: p, Key: p.String(), MonthName: p.MonthName()})
	}
	return months, nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
