package attendance

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/bala2006-m/smart-school-server-sub001/core"
)

var (
	// custom validation tags & texts
	statusTag  = "attstatus"
	statusText = "must be one of P, A, L or H"

	dateTag  = "datefmt"
	dateText = "must be a YYYY-MM-DD date"
)

// InitValidators registers the attendance validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(dateTag, dateValidation)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText)
}

func statusValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, s := range AllStatuses {
		if val == s {
			return true
		}
	}
	return false
}

func dateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}
