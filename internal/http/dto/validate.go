package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/postertrack/backend/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
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

// Validate checks the validate tags of a request and returns an apperr validation
// error whose fields are keyed by json name.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return apperr.Validation("invalid request")
	}
	fields := make(map[string]string, len(verr))
	for _, fe := range verr {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return apperr.ValidationFields("invalid request", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid id"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}
