package fee

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/biilasha/biilasha/core"
)

type Fee struct {
	ID          int         `json:"id"`
	Name        string      `json:"fee_name"`
	Description null.String `json:"description"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

// NewFee contains information needed to create a new Fee.
type NewFee struct {
	Name        string `json:"fee_name" validate:"required,notblank"`
	Description string `json:"description"`
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.Name = core.CleanString(nf.Name)
	nf.Description = core.CleanString(nf.Description)
	return validate.Struct(nf)
}

// UpdateFee replaces the editable fields of an existing Fee.
type UpdateFee struct {
	Name        string `json:"fee_name" validate:"required,notblank"`
	Description string `json:"description"`
}

func (uf *UpdateFee) Validate(validate *validator.Validate) error {
	uf.Name = core.CleanString(uf.Name)
	uf.Description = core.CleanString(uf.Description)
	return validate.Struct(uf)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func descriptionOf(s string) null.String {
	return null.NewString(s, s != "")
}
