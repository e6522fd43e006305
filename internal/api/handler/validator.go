package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo.Echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &RequestValidator{v: v}
}

// Validate returns a FieldErrors when a tag rule fails.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(FieldErrors, len(ve))
	for n, fe := range ve {
		out[n] = describe(fe)
	}
	return out
}

// FieldErrors lists one message per rejected field, in struct order.
type FieldErrors []string

func (e FieldErrors) Error() string { return strings.Join(e, "; ") }

func describe(fe validator.FieldError) string {
	name, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "url":
		return name + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, param)
	case "min", "max":
		bound := map[string]string{"min": "at least", "max": "at most"}[fe.Tag()]
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", name, bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", name, bound, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, param)
	}
	return fmt.Sprintf("%s failed %s", name, fe.Tag())
}

// jsonFieldName names fields after their json tag, then their query tag, so
// messages use the key the client sent.
func jsonFieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		switch name {
		case "":
			continue
		case "-":
			return ""
		}
		return name
	}
	return strings.ToLower(f.Name)
}
