package connector

import (
	"strings"

	"github.com/schemaforge/schemaforge/diagnostics"
)

// MySQLConnector implements the Connector interface for MySQL and MariaDB.
type MySQLConnector struct {
	baseConnector
}

// NewMySQLConnector creates a new MySQL connector.
func NewMySQLConnector() *MySQLConnector {
	return &MySQLConnector{baseConnector{
		name:                "MySQL",
		provider:            "mysql",
		flavour:             FlavourMySQL,
		maxIdentifierLength: 64,
		minServerVersion:    "5.7",
		capabilities: Capabilities(CapabilityEnums | CapabilityJson | CapabilityDecimal |
			CapabilityAutoIncrement | CapabilityAutoIncrementAllowedOnNonID |
			CapabilityNamedForeignKeys | CapabilityIndexColumnLengthPrefixing |
			CapabilityFullTextIndex | CapabilityViews),
		// MySQL rejects SetDefault on InnoDB tables.
		fkActions: []ReferentialAction{
			ReferentialActionNoAction,
			ReferentialActionRestrict,
			ReferentialActionCascade,
			ReferentialActionSetNull,
		},
		constraintScopes: []ConstraintScope{
			{Kinds: []ConstraintKind{ConstraintKindForeignKey}},
			{PerModel: true, Kinds: []ConstraintKind{ConstraintKindKeyOrIndex}},
		},
		indexTypes: []IndexAlgorithm{IndexAlgorithmBTree, IndexAlgorithmHash},
		urlSchemes: []string{"mysql://"},
		catalogue: []NativeTypeConstructor{
			{Name: "Bool", Scalar: ScalarTypeBoolean},
			{Name: "TinyInt", OptionalArgs: 1, Scalar: ScalarTypeInt},
			{Name: "SmallInt", Scalar: ScalarTypeInt},
			{Name: "MediumInt", Scalar: ScalarTypeInt},
			{Name: "Int", Scalar: ScalarTypeInt},
			{Name: "UnsignedInt", Scalar: ScalarTypeInt},
			{Name: "BigInt", Scalar: ScalarTypeBigInt},
			{Name: "Float", Scalar: ScalarTypeFloat},
			{Name: "Double", Scalar: ScalarTypeFloat},
			{Name: "Decimal", OptionalArgs: 2, Scalar: ScalarTypeDecimal},
			{Name: "VarChar", RequiredArgs: 1, Scalar: ScalarTypeString},
			{Name: "Char", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "TinyText", Scalar: ScalarTypeString},
			{Name: "Text", Scalar: ScalarTypeString},
			{Name: "MediumText", Scalar: ScalarTypeString},
			{Name: "LongText", Scalar: ScalarTypeString},
			{Name: "Binary", OptionalArgs: 1, Scalar: ScalarTypeBytes},
			{Name: "VarBinary", RequiredArgs: 1, Scalar: ScalarTypeBytes},
			{Name: "TinyBlob", Scalar: ScalarTypeBytes},
			{Name: "Blob", Scalar: ScalarTypeBytes},
			{Name: "MediumBlob", Scalar: ScalarTypeBytes},
			{Name: "LongBlob", Scalar: ScalarTypeBytes},
			{Name: "DateTime", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Timestamp", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Date", Scalar: ScalarTypeDateTime},
			{Name: "Time", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Json", Scalar: ScalarTypeJson},
		},
		scalarDefaults: map[ScalarType]NativeTypeInstance{
			ScalarTypeBoolean:  {Name: "Bool"},
			ScalarTypeInt:      {Name: "Int"},
			ScalarTypeBigInt:   {Name: "BigInt"},
			ScalarTypeFloat:    {Name: "Double"},
			ScalarTypeDecimal:  {Name: "Decimal", Args: []int{65, 30}},
			ScalarTypeString:   {Name: "VarChar", Args: []int{191}},
			ScalarTypeDateTime: {Name: "DateTime", Args: []int{3}},
			ScalarTypeJson:     {Name: "Json"},
			ScalarTypeBytes:    {Name: "LongBlob"},
		},
	}}
}

// ValidateModel adds MySQL-specific column rules on top of the shared model
// checks.
func (c *MySQLConnector) ValidateModel(model ModelWalker, mode RelationMode, diags *diagnostics.Diagnostics) {
	c.baseConnector.ValidateModel(model, mode, diags)

	for _, field := range model.Fields() {
		nt := field.NativeType()
		if nt == nil {
			continue
		}
		// TEXT and BLOB columns cannot carry a default value in MySQL.
		switch strings.ToLower(nt.Name) {
		case "tinytext", "text", "mediumtext", "longtext", "tinyblob", "blob", "mediumblob", "longblob":
			if field.DefaultFunction() != "" {
				diags.PushError(diagnostics.NewFieldValidationError(
					"Cannot set a default value on a TEXT or BLOB column.",
					model.Name(), field.Name(), field.Span()))
			}
		}
	}
}
