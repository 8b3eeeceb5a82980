package gradebook

import (
	"database/sql/driver"
	"math"
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core"
)

var (
	attendanceStatusTag  = "attendancestatus"
	attendanceStatusText = "{0} must be one of present, absent or late"

	finiteScoreTag  = "finitescore"
	finiteScoreText = "{0} must be a finite number"
)

// InitValidators registers the gradebook validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterCustomTypeFunc(nullFloatValue, null.Float64{})

	_ = validate.RegisterValidation(attendanceStatusTag, attendanceStatusValidation)
	core.RegisterCustomTranslation(validate, translator, attendanceStatusTag, attendanceStatusText)

	_ = validate.RegisterValidation(finiteScoreTag, finiteScoreValidation)
	core.RegisterCustomTranslation(validate, translator, finiteScoreTag, finiteScoreText)
}

// nullFloatValue lets tags apply to the wrapped float; null values read as nil.
func nullFloatValue(field reflect.Value) interface{} {
	if valuer, ok := field.Interface().(driver.Valuer); ok {
		if val, err := valuer.Value(); err == nil {
			return val
		}
	}
	return nil
}

func attendanceStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func finiteScoreValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Float64 {
		return false
	}
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
