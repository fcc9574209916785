package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	langTagRE = regexp.MustCompile(`^[A-Za-z]{2,3}([-_][A-Za-z0-9]{2,8})*$`)
)

// langTagValidator ensures the value looks like a BCP 47 style language tag
// ("en", "eng", "pt-BR", "zh_cn") or is the empty string. Whether the code is
// actually supported is decided by the languages package, not here.
func langTagValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return langTagRE.MatchString(value)
}
