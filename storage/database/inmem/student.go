package inmemdb

import (
	"context"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) create(std student.Student) student.Student {
	std.ID = repo.db.nextID("students")
	repo.db.students[std.ID] = std
	return std
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	defer repo.db.lockWrites(exec)()
	return repo.create(std), nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, students []student.Student, exec ...core.DBExecutor) ([]student.Student, error) {
	defer repo.db.lockWrites(exec)()

	created := make([]student.Student, 0, len(students))
	for _, std := range students {
		created = append(created, repo.create(std))
	}
	return created, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	defer repo.db.lockWrites(exec)()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	std.CreatedAt = orig.CreatedAt
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id int, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentsByID(_ context.Context, ids []int, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if std, ok := repo.db.students[id]; ok && !seen[id] {
			seen[id] = true
			students = append(students, std)
		}
	}
	return students, nil
}

func (repo *studentRepository) QueryStudents(
	_ context.Context,
	filter *student.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, std.Name, std.ParentName, std.ParentPhone) {
				continue
			}
			if filter.Status != "" && std.Status != filter.Status {
				continue
			}
		}
		students = append(students, std)
	}

	sortRows(students, ordering, map[string]func(i, j int) int{
		"id":           func(i, j int) int { return compareInts(students[i].ID, students[j].ID) },
		"student_name": func(i, j int) int { return compareStrings(students[i].Name, students[j].Name) },
		"parent_name":  func(i, j int) int { return compareStrings(students[i].ParentName, students[j].ParentName) },
		"monthly_fee":  func(i, j int) int { return compareDecimals(students[i].MonthlyFee, students[j].MonthlyFee) },
		"status":       func(i, j int) int { return compareStrings(students[i].Status, students[j].Status) },
		"created_at":   func(i, j int) int { return compareTimes(students[i].CreatedAt, students[j].CreatedAt) },
	}, newestFirst...)
	return students, nil
}

// DeleteStudent cascades to the student's invoices and their payments.
func (repo *studentRepository) DeleteStudent(_ context.Context, id int, exec ...core.DBExecutor) error {
	defer repo.db.lockWrites(exec)()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	for invID, inv := range repo.db.invoices {
		if inv.StudentID != id {
			continue
		}
		for pmtID, pmt := range repo.db.payments {
			if pmt.InvoiceID == invID {
				delete(repo.db.payments, pmtID)
			}
		}
		delete(repo.db.invoices, invID)
	}
	delete(repo.db.students, id)
	return nil
}

func (repo *studentRepository) CountDependents(_ context.Context, id int, _ ...core.DBExecutor) (student.DeletionImpact, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	impact := student.DeletionImpact{StudentID: id}
	invoiced := make(map[int]bool)
	for invID, inv := range repo.db.invoices {
		if inv.StudentID == id {
			invoiced[invID] = true
			impact.Invoices++
		}
	}
	for _, pmt := range repo.db.payments {
		if invoiced[pmt.InvoiceID] {
			impact.Payments++
		}
	}
	return impact, nil
}
