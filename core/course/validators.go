package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
)

var (
	shiftTag  = "shift"
	shiftText = "shift must be one of MAÑANA, TARDE or NOCHE"
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(shiftTag, shiftValidation)
	core.RegisterCustomTranslation(validate, translator, shiftTag, shiftText)
}

func shiftValidation(fl validator.FieldLevel) bool {
	shift := fl.Field().String()
	for _, s := range Shifts {
		if shift == s {
			return true
		}
	}
	return false
}
