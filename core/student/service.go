package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
)

var ErrNotFound = errors.New("student not found")

// Orderings maps the accepted `ordering` fields to their column.
var Orderings = map[string]string{
	"id":           "id",
	"student_name": "student_name",
	"parent_name":  "parent_name",
	"monthly_fee":  "monthly_fee",
	"status":       "status",
	"created_at":   "created_at",
}

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		// CreateStudents inserts all students in a single batch.
		CreateStudents(ctx context.Context, students []Student, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetStudentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		// GetStudentsByID returns the students found, in no particular order.
		GetStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]Student, error)
		// QueryStudents does a case-insensitive match of QueryFilter.Search on Student.Name,
		// Student.ParentName & Student.ParentPhone. Newest first unless ordered otherwise.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		// DeleteStudent deletes the student with their invoices and the payments of those invoices.
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error
		CountDependents(ctx context.Context, id int, exec ...core.DBExecutor) (DeletionImpact, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Update(ctx context.Context, id int, us UpdateStudent) (Student, error)
		GetByID(ctx context.Context, id int) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		QueryActive(ctx context.Context) ([]Student, error)
		DeletionImpact(ctx context.Context, id int) (DeletionImpact, error)
		Delete(ctx context.Context, id int) error
		Import(ctx context.Context, students []NewStudent) (ImportResult, error)
	}

	service struct {
		repo  Repository
		cache *core.Cache
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, cache *core.Cache) Service {
	return &service{repo: repo, cache: cache}
}

func newStudent(ns NewStudent, now time.Time) Student {
	return Student{
		Name:        ns.Name,
		ParentName:  ns.ParentName,
		ParentPhone: ns.ParentPhone,
		MonthlyFee:  ns.MonthlyFee,
		Status:      ns.Status,
		CreatedAt:   now,
	}
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	std, err := svc.repo.CreateStudent(ctx, newStudent(ns, time.Now().UTC()))
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.cache.Invalidate(core.ResourceStudents)
	return std, nil
}

func (svc *service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, errors.Wrap(err, "finding student by ID")
	}
	std.Name = us.Name
	std.ParentName = us.ParentName
	std.ParentPhone = us.ParentPhone
	std.MonthlyFee = us.MonthlyFee
	std.Status = us.Status

	std, err = svc.repo.UpdateStudent(ctx, std)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	svc.cache.Invalidate(core.ResourceStudents)
	return std, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, core.MapOrderings(ordering, Orderings))
}

// QueryActive returns every active student, by name.
func (svc *service) QueryActive(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(
		ctx,
		&QueryFilter{Status: StatusActive},
		[]core.DBOrdering{{Field: "student_name", Ascending: true}},
	)
}

func (svc *service) DeletionImpact(ctx context.Context, id int) (DeletionImpact, error) {
	if _, err := svc.repo.GetStudentByID(ctx, id); err != nil {
		return DeletionImpact{}, errors.Wrap(err, "finding student by ID")
	}
	return svc.repo.CountDependents(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	if err := svc.repo.DeleteStudent(ctx, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	svc.cache.Invalidate(core.ResourceStudents, core.ResourceInvoices, core.ResourcePayments)
	return nil
}

// Import inserts the students of an import preview in a single batch.
func (svc *service) Import(ctx context.Context, students []NewStudent) (ImportResult, error) {
	if len(students) == 0 {
		return ImportResult{}, importError(errNoImportData)
	}

	now := time.Now().UTC()
	batch := make([]Student, 0, len(students))
	for _, ns := range students {
		ns.clean()
		batch = append(batch, newStudent(ns, now))
	}

	created, err := svc.repo.CreateStudents(ctx, batch)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "importing students")
	}
	svc.cache.Invalidate(core.ResourceStudents)
	return ImportResult{Imported: len(created)}, nil
}
