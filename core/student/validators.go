package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/biilasha/biilasha/core"
)

var (
	studentStatusTag  = "studentstatus"
	studentStatusText = "status must be one of: active, inactive"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(studentStatusTag, studentStatusValidation)
	core.RegisterCustomTranslation(validate, translator, studentStatusTag, studentStatusText)
}

func studentStatusValidation(fl validator.FieldLevel) bool {
	status, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, s := range Statuses {
		if status == s {
			return true
		}
	}
	return false
}
