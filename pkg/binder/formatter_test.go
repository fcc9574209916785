package binder

import (
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/assert"
)

type mockFieldError struct {
	tag   string
	field string
	param string
	kind  reflect.Kind
}

func (e *mockFieldError) Error() string           { return "Mock Field Error" }
func (e *mockFieldError) Tag() string             { return e.tag }
func (e *mockFieldError) ActualTag() string       { return e.tag }
func (e *mockFieldError) Namespace() string       { return "" }
func (e *mockFieldError) StructNamespace() string { return "" }
func (e *mockFieldError) Field() string           { return e.field }
func (e *mockFieldError) StructField() string     { return "" }
func (e *mockFieldError) Value() interface{}      { return "" }
func (e *mockFieldError) Param() string           { return e.param }
func (e *mockFieldError) Kind() reflect.Kind {
	if e.kind == 0 {
		return reflect.String
	}
	return e.kind
}
func (e *mockFieldError) Type() reflect.Type               { return reflect.TypeOf("") }
func (e *mockFieldError) Translate(_ ut.Translator) string { return "" }

func TestFormatValidationError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tag   string
		param string
		kind  reflect.Kind
		msg   string
	}{
		{email, "", 0, `"reader_email" is not a valid email`},
		{langtag, "", 0, `"reader_email" should be a language code such as "en" or "pt-BR"`},
		{mx, "300", reflect.String, `"reader_email" length must be less than or equal to 300 characters`},
		{mx, "1", reflect.String, `"reader_email" length must be less than or equal to 1 character`},
		{mn, "1", reflect.String, `"reader_email" length must be greater than or equal to 1 character`},
		{mx, "100", reflect.Int, `"reader_email" must be less than or equal to 100`},
		{mn, "0", reflect.Int64, `"reader_email" must be greater than or equal to 0`},
		{mn, "1", reflect.Uint, `"reader_email" must be greater than or equal to 1`},
		{mx, "4", reflect.Slice, `"reader_email" length must be less than or equal to 4 elements`},
		{mn, "1", reflect.Slice, `"reader_email" length must be greater than or equal to 1 element`},
		{oneof, "pending completed", 0, `"reader_email" must be one of the following: "pending", "completed"`},
		{required, "", 0, `"reader_email" is required`},
		{"uuid4", "", 0, `"reader_email" is invalid (uuid4)`},
	}

	for _, tt := range cases {
		err := mockFieldError{tag: tt.tag, field: "reader_email", param: tt.param, kind: tt.kind}
		assert.Equal(t, tt.msg, formatValidationError(&err), tt.tag+" "+tt.param)
	}
}
