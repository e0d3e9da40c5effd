// Package validator wraps go-playground/validator with the contact phone
// rule and readable field messages.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule, keyed by the JSON field path
type FieldError struct {
	Field   string
	Message string
}

// Error implements error
func (e FieldError) Error() string {
	return e.Message
}

// Validator validates request structs by their `validate` tags
type Validator struct {
	validate *validator.Validate
	phone    *PhoneValidator
}

// New creates a Validator. The "phone" tag checks numbers with PhoneValidator.
func New(countryCode string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	phone := NewPhoneValidator(countryCode)

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phone.IsValid(fl.Field().String())
	})

	return &Validator{validate: v, phone: phone}
}

// Phone returns the phone validator
func (v *Validator) Phone() *PhoneValidator {
	return v.phone
}

// Struct validates s and returns the first failure as a FieldError
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	return toFieldError(errs[0])
}

func toFieldError(fe validator.FieldError) FieldError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return FieldError{Field: field, Message: message(fe)}
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", name)
	}
	return fmt.Sprintf("%s is invalid", name)
}
