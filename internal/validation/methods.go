package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// Validator defines validation methods
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error to the validator
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Printable checks that a string has no control characters
func (v *Validator) Printable(field, value string) {
	v.Check(strings.IndexFunc(value, unicode.IsControl) < 0, field, "must not contain control characters")
}

// Address checks the shape of an account address. The zero address passes;
// the ledger rejects it with its own error.
func (v *Validator) Address(field, value string) {
	v.MaxLength(field, value, MaxAddressLength)
	v.Check(strings.IndexFunc(strings.TrimSpace(value), unicode.IsSpace) < 0, field, "must not contain whitespace")
}
