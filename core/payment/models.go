package payment

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/invoice"
)

// Methods
const (
	MethodCash        = "cash"
	MethodMobileMoney = "mobile money"
	MethodBank        = "bank"
)

var Methods = []string{MethodCash, MethodMobileMoney, MethodBank}

type Payment struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	PaymentDate core.Date       `json:"payment_date"`
	Method      string          `json:"payment_method"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	CreatedAt   time.Time       `json:"created_at"` // UTC

	// joined on read
	StudentName string `json:"student_name"`
	FeeName     string `json:"fee_name"`
	MonthName   string `json:"month_name"`
}

// NewPayment contains information needed to record a payment.
// Zero values are defaulted: today, cash and the invoice's outstanding amount.
type NewPayment struct {
	InvoiceID   int              `json:"invoice_id" validate:"required,gt=0"`
	PaymentDate *core.Date       `json:"payment_date"`
	Method      string           `json:"payment_method" validate:"omitempty,paymethod"`
	AmountPaid  *decimal.Decimal `json:"amount_paid" validate:"omitempty,gt=0"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Method = cleanMethod(np.Method)
	return validate.Struct(np)
}

func cleanMethod(method string) string {
	return strings.ReplaceAll(core.CleanString(method, true /* lower */), "_", " ")
}

// Receipt is a recorded payment with its invoice as re-read after the payment was committed.
type Receipt struct {
	Payment Payment         `json:"payment"`
	Invoice invoice.Invoice `json:"invoice"`
}

// Balance is the state of an invoice's payments.
type Balance struct {
	InvoiceID   int             `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Status      string          `json:"status"`
}

type QueryFilter struct {
	InvoiceID int       `query:"invoice_id"`
	StudentID int       `query:"student_id"`
	Method    string    `query:"payment_method"`
	DateFrom  core.Date `query:"date_from"`
	DateTo    core.Date `query:"date_to"`
	Limit     int       `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Method = cleanMethod(qf.Method)
	if qf.Limit < 0 {
		qf.Limit = 0
	}
}
