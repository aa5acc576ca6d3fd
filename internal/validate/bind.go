package validate

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/keyxmakerx/tally/internal/apperror"
)

// BindError converts an echo Bind failure into an AppError. A value of the
// wrong JSON type for a known field is a 422 on that field, like any other
// validation failure. Broken JSON stays a 400.
func BindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field
		return apperror.NewValidationFields(map[string]string{
			field: "The " + strings.ReplaceAll(field, "_", " ") + " " + typeMessage(typeErr.Type),
		})
	}
	return apperror.NewBadRequest("invalid request body")
}

func typeMessage(t reflect.Type) string {
	if t == nil {
		return "has an invalid type."
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "must be a string."
	case reflect.Bool:
		return "must be true or false."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be an integer."
	case reflect.Float32, reflect.Float64:
		return "must be a number."
	case reflect.Slice, reflect.Array:
		return "must be an array."
	case reflect.Map, reflect.Struct:
		return "must be an object."
	default:
		return "has an invalid type."
	}
}
