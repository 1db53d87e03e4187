// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// leadIDPattern matches the identifiers accepted for leads: short, URL-safe
// tokens supplied by the inbound boundary (e.g. "L001").
var leadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the domain rules registered.
func New() *Validator {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("leadid", func(fl validator.FieldLevel) bool {
		return leadIDPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
