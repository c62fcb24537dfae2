package diagnostics

import (
	"fmt"
	"strings"
)

// SchemaWarning represents a non-fatal warning emitted during validation.
type SchemaWarning struct {
	message string
	span    Span
}

// NewSchemaWarning creates a new SchemaWarning with the given message and span.
func NewSchemaWarning(message string, span Span) SchemaWarning {
	return SchemaWarning{message: message, span: span}
}

// Message returns the warning message.
func (w SchemaWarning) Message() string {
	return w.message
}

// Span returns the span of the warning.
func (w SchemaWarning) Span() Span {
	return w.span
}

// NewMissingIndexOnEmulatedRelationWarning creates a warning for missing
// indexes on relations in emulated relation mode.
func NewMissingIndexOnEmulatedRelationWarning(span Span) SchemaWarning {
	message := strings.TrimSpace(`
With relationMode = "prisma", no foreign keys are used, so relation fields will not benefit from the index usually created by the relational database under the hood.
This can lead to poor performance when querying these fields. We recommend adding an index manually.
`)
	return NewSchemaWarning(message, span)
}

// NewDatasourceURLSchemeWarning creates a warning for connection URLs with an
// unexpected scheme.
func NewDatasourceURLSchemeWarning(provider, expectedScheme string, span Span) SchemaWarning {
	message := fmt.Sprintf("%s datasource URL should start with `%s`.", provider, expectedScheme)
	return NewSchemaWarning(message, span)
}

// NewNonTransactionalDDLWarning creates a warning surfaced when a plan will
// run without transactional DDL.
func NewNonTransactionalDDLWarning(provider string, span Span) SchemaWarning {
	message := fmt.Sprintf("The %s connector does not support transactional DDL. Steps are applied one by one with no rollback guarantee.", provider)
	return NewSchemaWarning(message, span)
}
