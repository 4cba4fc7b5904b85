package payment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/biilasha/biilasha/core"
)

var (
	payMethodTag  = "paymethod"
	payMethodText = "payment method must be one of: cash, mobile money, bank"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(payMethodTag, payMethodValidation)
	core.RegisterCustomTranslation(validate, translator, payMethodTag, payMethodText)
}

func payMethodValidation(fl validator.FieldLevel) bool {
	method, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, m := range Methods {
		if method == m {
			return true
		}
	}
	return false
}
