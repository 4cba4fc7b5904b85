package invoice

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
)

// Statuses
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

type Invoice struct {
	ID        int             `json:"id"`
	StudentID int             `json:"student_id"`
	FeeID     int             `json:"fee_id"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	MonthName string          `json:"month_name"`
	DueDate   core.Date       `json:"due_date"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"` // UTC

	// joined on read
	StudentName string `json:"student_name"`
	FeeName     string `json:"fee_name"`
}

func (inv Invoice) IsPaid() bool {
	return inv.Status == StatusPaid
}

// Key identifies the (student, fee, billing month) an invoice is for.
type Key struct {
	StudentID int
	FeeID     int
	MonthName string
}

func (inv Invoice) Key() Key {
	return Key{StudentID: inv.StudentID, FeeID: inv.FeeID, MonthName: inv.MonthName}
}

// Target is the set of students to invoice: every active student or an explicit selection.
type Target struct {
	all bool
	ids []int
}

func AllActive() Target {
	return Target{all: true}
}

func Students(ids ...int) Target {
	return Target{ids: ids}
}

func (t Target) IsAllActive() bool { return t.all }
func (t Target) StudentIDs() []int { return t.ids }

// GenerateRequest holds what is needed to generate the invoices of a fee for one billing month.
type GenerateRequest struct {
	FeeID      int        `json:"fee_id" validate:"required,gt=0"`
	Month      int        `json:"month" validate:"required,min=1,max=12"`
	Year       int        `json:"year" validate:"required,min=1000,max=9999"`
	DueDate    *core.Date `json:"due_date"`
	StudentIDs []int      `json:"student_ids"` // custom generation only
}

// Validate validates the request; custom requests must select at least one student.
func (gr *GenerateRequest) Validate(validate *validator.Validate, custom bool) error {
	if err := validate.Struct(gr); err != nil {
		return err
	}
	if custom && len(gr.StudentIDs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: errSelectStudents})
	}
	return nil
}

func (gr GenerateRequest) Period() Period {
	return NewPeriod(gr.Year, time.Month(gr.Month))
}

// EffectiveDueDate is the requested due date, defaulting to the period's last day.
func (gr GenerateRequest) EffectiveDueDate() core.Date {
	if gr.DueDate != nil && !gr.DueDate.IsZero() {
		return *gr.DueDate
	}
	return gr.Period().LastDay()
}

type GenerateResult struct {
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Waived    int       `json:"waived"` // students without a monthly fee
	MonthName string    `json:"month_name"`
	DueDate   core.Date `json:"due_date"`
	Invoices  []Invoice `json:"invoices"`
}

type QueryFilter struct {
	Search    string `query:"search"` // student or fee name
	Status    string `query:"status"`
	FeeID     int    `query:"fee_id"`
	StudentID int    `query:"student_id"`
	Period    Period `query:"period"`
	MonthName string `query:"month_name"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.MonthName = core.CleanString(qf.MonthName)
	if qf.MonthName != "" && qf.Period.IsZero() {
		if p, err := ParsePeriod(qf.MonthName); err == nil {
			qf.Period = p
			qf.MonthName = ""
		}
	}
}
