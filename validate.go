package folio

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks the `validate` tags of request and input structs. Field
// names in errors come from the json tag.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestValidator plugs validate into echo.Context.Validate.
type requestValidator struct{}

func (requestValidator) Validate(i any) error {
	return validationError("", validate.Struct(i))
}

// checkVar validates a single value and reports failures against field.
func checkVar(field string, value any, tag string) error {
	return validationError(field, validate.Var(value, tag))
}

// validationError turns the first validator failure into a ValidationError.
// field overrides the reported name for single-value checks.
func validationError(field string, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	if field == "" {
		field = fe.Field()
	}
	return invalid(field, fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid address"
	case "max":
		return "is too long"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	}
	return "is invalid"
}
