package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/core/payment"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/core/user"
)

// NewValidator returns a validator with every custom validation & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateFee(t *testing.T, repo fee.Repository, name string) fee.Fee {
	t.Helper()
	fe, err := repo.CreateFee(context.Background(), fee.Fee{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	return fe
}

func CreateStudent(t *testing.T, repo student.Repository, name string, monthlyFee int64, status string) student.Student {
	t.Helper()
	std, err := repo.CreateStudent(context.Background(), student.Student{
		Name:       name,
		ParentName: "Parent of " + name,
		MonthlyFee: decimal.NewFromInt(monthlyFee),
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// FieldErrors returns the field errors of a *core.ValidationError, keyed by field.
func FieldErrors(err error) map[string]string {
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		return nil
	}
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}
