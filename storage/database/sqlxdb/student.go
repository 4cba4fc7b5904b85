package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/student"
)

const studentColumns = "id, student_name, parent_name, parent_phone, monthly_fee, status, created_at"

var studentOrderColumns = map[string]string{
	"id":           "id",
	"student_name": "student_name",
	"parent_name":  "parent_name",
	"monthly_fee":  "monthly_fee",
	"status":       "status",
	"created_at":   "created_at",
}

type studentRow struct {
	ID          int             `db:"id"`
	StudentName string          `db:"student_name"`
	ParentName  string          `db:"parent_name"`
	ParentPhone string          `db:"parent_phone"`
	MonthlyFee  decimal.Decimal `db:"monthly_fee"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:          r.ID,
		Name:        r.StudentName,
		ParentName:  r.ParentName,
		ParentPhone: r.ParentPhone,
		MonthlyFee:  r.MonthlyFee,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func studentsOf(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students
}

type studentRepository struct {
	baseRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{baseRepository{db: db}}
}

func (repo studentRepository) insert() sq.InsertBuilder {
	return psql.Insert("students").
		Columns("student_name", "parent_name", "parent_phone", "monthly_fee", "status", "created_at").
		Suffix("RETURNING " + studentColumns)
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	qb := repo.insert().Values(std.Name, std.ParentName, std.ParentPhone, std.MonthlyFee, std.Status, std.CreatedAt.UTC())

	var row studentRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return student.Student{}, core.NewStoreError("inserting student", err)
	}
	return row.student(), nil
}

func (repo studentRepository) CreateStudents(ctx context.Context, students []student.Student, exec ...core.DBExecutor) ([]student.Student, error) {
	if len(students) == 0 {
		return []student.Student{}, nil
	}
	qb := repo.insert()
	for _, std := range students {
		qb = qb.Values(std.Name, std.ParentName, std.ParentPhone, std.MonthlyFee, std.Status, std.CreatedAt.UTC())
	}

	var rows []studentRow
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("inserting students", err)
	}
	return studentsOf(rows), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	qb := psql.Update("students").
		SetMap(map[string]interface{}{
			"student_name": std.Name,
			"parent_name":  std.ParentName,
			"parent_phone": std.ParentPhone,
			"monthly_fee":  std.MonthlyFee,
			"status":       std.Status,
		}).
		Where(sq.Eq{"id": std.ID}).
		Suffix("RETURNING " + studentColumns)

	var row studentRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "updating student")
	}
	return row.student(), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	qb := psql.Select(studentColumns).From("students").Where(sq.Eq{"id": id})

	var row studentRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by ID")
	}
	return row.student(), nil
}

func (repo studentRepository) GetStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]student.Student, error) {
	if len(ids) == 0 {
		return []student.Student{}, nil
	}
	qb := psql.Select(studentColumns).From("students").Where(sq.Eq{"id": ids})

	var rows []studentRow
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("finding students by ID", err)
	}
	return studentsOf(rows), nil
}

func (repo studentRepository) QueryStudents(
	ctx context.Context,
	filter *student.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]student.Student, error) {
	qb := psql.Select(studentColumns).From("students")
	if filter != nil {
		if filter.Search != "" {
			val := likeValue(filter.Search)
			qb = qb.Where(sq.Or{
				sq.ILike{"student_name": val},
				sq.ILike{"parent_name": val},
				sq.ILike{"parent_phone": val},
			})
		}
		if filter.Status != "" {
			qb = qb.Where(sq.Eq{"status": filter.Status})
		}
	}
	qb = qb.OrderBy(orderBy(ordering, studentOrderColumns, "created_at DESC", "id DESC")...)

	var rows []studentRow
	if err := repo.selectAll(ctx, exec, &rows, qb); err != nil {
		return nil, core.NewStoreError("querying students", err)
	}
	return studentsOf(rows), nil
}

// DeleteStudent relies on the ON DELETE CASCADE of invoices & payments.
func (repo studentRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.exec(ctx, exec, psql.Delete("students").Where(sq.Eq{"id": id}))
	if err != nil {
		return core.NewStoreError("deleting student", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStoreError("deleting student", err)
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo studentRepository) CountDependents(ctx context.Context, id int, exec ...core.DBExecutor) (student.DeletionImpact, error) {
	qb := psql.Select().
		Column(sq.Expr("(SELECT COUNT(*) FROM invoices WHERE student_id = ?) AS invoices", id)).
		Column(sq.Expr(
			"(SELECT COUNT(*) FROM payments p JOIN invoices i ON i.id = p.invoice_id WHERE i.student_id = ?) AS payments", id,
		))

	var counts struct {
		Invoices int `db:"invoices"`
		Payments int `db:"payments"`
	}
	if err := repo.get(ctx, exec, &counts, qb); err != nil {
		return student.DeletionImpact{}, core.NewStoreError("counting student dependents", err)
	}
	return student.DeletionImpact{StudentID: id, Invoices: counts.Invoices, Payments: counts.Payments}, nil
}
