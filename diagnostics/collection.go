package diagnostics

import (
	"bytes"
	"fmt"
)

// Diagnostics is a collection of validation errors and warnings.
// It accumulates every problem found during a validation pass instead of
// erroring out early, so a user sees all errors in one run.
type Diagnostics struct {
	errors   []SchemaError
	warnings []SchemaWarning
}

// NewDiagnostics creates a new empty Diagnostics collection.
func NewDiagnostics() Diagnostics {
	return Diagnostics{
		errors:   make([]SchemaError, 0),
		warnings: make([]SchemaWarning, 0),
	}
}

// Errors returns all errors in the collection.
func (d *Diagnostics) Errors() []SchemaError {
	return d.errors
}

// Warnings returns all warnings in the collection.
func (d *Diagnostics) Warnings() []SchemaWarning {
	return d.warnings
}

// PushError adds an error to the collection.
func (d *Diagnostics) PushError(err SchemaError) {
	d.errors = append(d.errors, err)
}

// PushWarning adds a warning to the collection.
func (d *Diagnostics) PushWarning(warning SchemaWarning) {
	d.warnings = append(d.warnings, warning)
}

// Merge appends all errors and warnings from another collection.
func (d *Diagnostics) Merge(other *Diagnostics) {
	d.errors = append(d.errors, other.errors...)
	d.warnings = append(d.warnings, other.warnings...)
}

// HasErrors returns true if there is at least one error in this collection.
func (d *Diagnostics) HasErrors() bool {
	return len(d.errors) > 0
}

// ToResult returns an error if there are errors, otherwise nil.
func (d *Diagnostics) ToResult() error {
	if d.HasErrors() {
		return fmt.Errorf("validation failed with %d errors", len(d.errors))
	}
	return nil
}

// ToPrettyString formats all errors as a pretty-printed string.
func (d *Diagnostics) ToPrettyString(fileName, schemaText string) string {
	var buf bytes.Buffer
	for _, err := range d.errors {
		writePretty(&buf, fileName, schemaText, err.Span(), err.Message(), errorColorer{})
	}
	return buf.String()
}

// WarningsToPrettyString formats all warnings as a pretty-printed string.
func (d *Diagnostics) WarningsToPrettyString(fileName, schemaText string) string {
	var buf bytes.Buffer
	for _, warn := range d.warnings {
		writePretty(&buf, fileName, schemaText, warn.Span(), warn.Message(), warningColorer{})
	}
	return buf.String()
}

// FromError creates a Diagnostics from a single error.
func FromError(err SchemaError) Diagnostics {
	d := NewDiagnostics()
	d.PushError(err)
	return d
}
