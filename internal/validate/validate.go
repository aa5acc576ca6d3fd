// Package validate wraps go-playground/validator with Tally's rules and turns
// failures into 422 AppErrors keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/sanitize"
)

// MaxAmount is the largest amount an expense or income may carry. It is the
// largest value a DECIMAL(12,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999.99")

var rgbHexPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validator validates request DTOs. Safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with JSON field names and the custom rules
// registered: "decimal", "amount", "plaintext" and "rgbhex".
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Amounts are validated through the text the client sent.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if a, ok := field.Interface().(Amount); ok {
			return a.String()
		}
		return nil
	}, Amount{})

	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		return ValidAmount(fl.Field().String())
	})
	_ = v.RegisterValidation("plaintext", func(fl validator.FieldLevel) bool {
		return sanitize.Plain(fl.Field().String())
	})
	_ = v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		return rgbHexPattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Struct validates s and returns a 422 AppError listing every invalid field,
// or nil when s is valid.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewInternal(fmt.Errorf("validating request: %w", err))
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = "The " + strings.ReplaceAll(name, "_", " ") + " " + message(fe)
	}
	return apperror.NewValidationFields(fields)
}

// ValidAmount reports whether s is a decimal strictly greater than zero, at
// most MaxAmount, with no more than two fractional digits.
func ValidAmount(s string) bool {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	if !d.IsPositive() || d.GreaterThan(MaxAmount) {
		return false
	}
	return d.Equal(d.Truncate(2))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required."
	case "email":
		return "must be a valid email address."
	case "min":
		return fmt.Sprintf("must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("must not be greater than %s characters.", fe.Param())
	case "url":
		return "must be a valid URL."
	case "datetime":
		return "is not a valid date (expected YYYY-MM-DD)."
	case "decimal":
		return "must be a number."
	case "amount":
		return "must be greater than 0 and at most 999999999.99, with at most two decimals."
	case "plaintext":
		return "must not contain HTML markup."
	case "rgbhex":
		return "must be a hex color like #FF5733."
	case "eqfield":
		return "confirmation does not match."
	case "gt":
		return "must be greater than " + fe.Param() + "."
	default:
		return "is invalid."
	}
}
