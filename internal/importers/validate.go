package importers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldError is the first structural problem found on a record.
type fieldError struct {
	Field   string
	Message string
}

// recordValidator wraps go-playground/validator, reporting fields by their
// JSON names.
type recordValidator struct {
	v *validator.Validate
}

func newRecordValidator() *recordValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &recordValidator{v: v}
}

// check returns nil when the record satisfies its struct tags.
func (rv *recordValidator) check(record any) *fieldError {
	err := rv.v.Struct(record)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return &fieldError{Message: err.Error()}
	}

	e := validationErrs[0]
	return &fieldError{Field: e.Field(), Message: friendlyMessage(e)}
}

func friendlyMessage(e validator.FieldError) string {
	numeric := false
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		if numeric {
			return fmt.Sprintf("must be at least %s", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("must be at most %s", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}
