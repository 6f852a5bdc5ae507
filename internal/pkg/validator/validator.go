package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "card", "credits", "":
			return true
		}
		return false
	})

	// Digits with optional space separators
	validate.RegisterValidation("card_number", func(fl validator.FieldLevel) bool {
		digits := 0
		for _, r := range fl.Field().String() {
			switch {
			case r >= '0' && r <= '9':
				digits++
			case r == ' ':
			default:
				return false
			}
		}
		return digits >= 12 && digits <= 19
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string)
	for _, err := range verrs {
		field := err.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch err.Tag() {
		case "required":
			fields[field] = "This field is required"
		case "min":
			fields[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			fields[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			fields[field] = "Value must be greater than " + err.Param()
		case "gte":
			fields[field] = "Value must be at least " + err.Param()
		case "lte":
			fields[field] = "Value must be at most " + err.Param()
		case "len":
			fields[field] = "Value must have length " + err.Param()
		case "numeric":
			fields[field] = "Value must contain digits only"
		case "iso4217":
			fields[field] = "Invalid currency code"
		case "payment_method":
			fields[field] = "Invalid payment method. Must be: card or credits"
		case "card_number", "credit_card":
			fields[field] = "Invalid card number"
		default:
			fields[field] = "Invalid value"
		}
	}

	return fields
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
