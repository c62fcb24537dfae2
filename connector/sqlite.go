package connector

import (
	"errors"
	"strings"

	"github.com/schemaforge/schemaforge/diagnostics"
)

var (
	errEmptyURL        = errors.New("URL cannot be empty")
	errSQLiteURLScheme = errors.New("must start with the protocol `file:`")
)

// SQLiteConnector implements the Connector interface for SQLite.
type SQLiteConnector struct {
	baseConnector
}

// NewSQLiteConnector creates a new SQLite connector.
func NewSQLiteConnector() *SQLiteConnector {
	return &SQLiteConnector{baseConnector{
		name:     "SQLite",
		provider: "sqlite",
		flavour:  FlavourSQLite,
		// SQLite has no practical identifier length limit.
		maxIdentifierLength: 0,
		capabilities: Capabilities(CapabilityDecimal | CapabilityAutoIncrement |
			CapabilityCompoundIDs | CapabilityTransactionalDDL),
		fkActions: allReferentialActions,
		// Index names share one database-wide namespace.
		constraintScopes: []ConstraintScope{
			{Kinds: []ConstraintKind{ConstraintKindKeyOrIndex}},
		},
		urlSchemes: []string{"file:"},
		catalogue: []NativeTypeConstructor{
			{Name: "Boolean", Scalar: ScalarTypeBoolean},
			{Name: "Integer", Scalar: ScalarTypeInt},
			{Name: "BigInt", Scalar: ScalarTypeBigInt},
			{Name: "Real", Scalar: ScalarTypeFloat},
			{Name: "Decimal", OptionalArgs: 2, Scalar: ScalarTypeDecimal},
			{Name: "Text", Scalar: ScalarTypeString},
			{Name: "DateTime", Scalar: ScalarTypeDateTime},
			{Name: "Blob", Scalar: ScalarTypeBytes},
		},
		scalarDefaults: map[ScalarType]NativeTypeInstance{
			ScalarTypeBoolean:  {Name: "Boolean"},
			ScalarTypeInt:      {Name: "Integer"},
			ScalarTypeBigInt:   {Name: "BigInt"},
			ScalarTypeFloat:    {Name: "Real"},
			ScalarTypeDecimal:  {Name: "Decimal"},
			ScalarTypeString:   {Name: "Text"},
			ScalarTypeDateTime: {Name: "DateTime"},
			ScalarTypeBytes:    {Name: "Blob"},
		},
	}}
}

// ValidateURL accepts file paths and file: URLs.
func (c *SQLiteConnector) ValidateURL(url string) error {
	if url == "" {
		return errEmptyURL
	}
	if strings.HasPrefix(url, "env:") || strings.HasPrefix(url, "file:") || strings.HasPrefix(url, ":memory:") {
		return nil
	}
	// Bare paths are accepted for compatibility with driver DSNs.
	if !strings.Contains(url, "://") {
		return nil
	}
	return errSQLiteURLScheme
}

// ValidateModel adds SQLite-specific rules on top of the shared model checks.
func (c *SQLiteConnector) ValidateModel(model ModelWalker, mode RelationMode, diags *diagnostics.Diagnostics) {
	c.baseConnector.ValidateModel(model, mode, diags)

	for _, field := range model.Fields() {
		// AUTOINCREMENT is only valid on an INTEGER PRIMARY KEY column.
		if field.IsAutoIncrement() && field.Scalar() != ScalarTypeInt {
			diags.PushError(diagnostics.NewFieldValidationError(
				"autoincrement() is only allowed on Int fields with SQLite.",
				model.Name(), field.Name(), field.Span()))
		}
	}
}
