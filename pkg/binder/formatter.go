package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

const (
	email    = "email"
	langtag  = "langtag"
	mx       = "max"
	mn       = "min"
	oneof    = "oneof"
	required = "required"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

var fieldMessages = map[string]func(field string, err validator.FieldError) string{
	email: func(field string, _ validator.FieldError) string {
		return fmt.Sprintf("%q is not a valid email", field)
	},
	langtag: func(field string, _ validator.FieldError) string {
		return fmt.Sprintf("%q should be a language code such as \"en\" or \"pt-BR\"", field)
	},
	mx: func(field string, err validator.FieldError) string {
		return boundMessage(field, "less", err)
	},
	mn: func(field string, err validator.FieldError) string {
		return boundMessage(field, "greater", err)
	},
	oneof: func(field string, err validator.FieldError) string {
		valids := []string{}
		for _, p := range strings.Fields(err.Param()) {
			valids = append(valids, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(valids, ", "))
	},
	required: func(field string, _ validator.FieldError) string {
		return fmt.Sprintf("%q is required", field)
	},
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	if format, ok := fieldMessages[err.Tag()]; ok {
		return format(field, err)
	}
	return fmt.Sprintf("%q is invalid (%s)", field, err.Tag())
}

// boundMessage describes a failed min/max check. Numbers are compared by
// value, strings by character count and slices by element count.
func boundMessage(field, direction string, err validator.FieldError) string {
	param := err.Param()

	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s than or equal to %s", field, direction, param)
	}

	unit := "character"
	if err.Kind() == reflect.Slice {
		unit = "element"
	}
	if param != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s than or equal to %s %s", field, direction, param, unit)
}
