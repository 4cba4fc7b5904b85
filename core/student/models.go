package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
)

// Statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var Statuses = []string{StatusActive, StatusInactive}

type Student struct {
	ID          int             `json:"id"`
	Name        string          `json:"student_name"`
	ParentName  string          `json:"parent_name"`
	ParentPhone string          `json:"parent_phone"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

func (s Student) IsActive() bool {
	return s.Status == StatusActive
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name        string          `json:"student_name" validate:"required,notblank"`
	ParentName  string          `json:"parent_name" validate:"required,notblank"`
	ParentPhone string          `json:"parent_phone"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
	Status      string          `json:"status" validate:"omitempty,studentstatus"`
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.Status = core.CleanString(ns.Status, true /* lower */)
	if ns.Status == "" {
		ns.Status = StatusActive
	}
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.clean()
	return validate.Struct(ns)
}

// UpdateStudent replaces the editable fields of an existing Student.
type UpdateStudent struct {
	Name        string          `json:"student_name" validate:"required,notblank"`
	ParentName  string          `json:"parent_name" validate:"required,notblank"`
	ParentPhone string          `json:"parent_phone"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
	Status      string          `json:"status" validate:"required,studentstatus"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.ParentName = core.CleanString(us.ParentName)
	us.ParentPhone = core.CleanString(us.ParentPhone)
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// DeletionImpact is what deleting a student also removes.
type DeletionImpact struct {
	StudentID int `json:"student_id"`
	Invoices  int `json:"invoices"`
	Payments  int `json:"payments"`
}

// ImportPreview holds the students parsed from an import file, ready to be inserted.
type ImportPreview struct {
	Students []NewStudent `json:"students"`
	Dropped  int          `json:"dropped"` // rows without a student or parent name
}

type ImportResult struct {
	Imported int `json:"imported"`
	Dropped  int `json:"dropped"`
}
