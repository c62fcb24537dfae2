package connector

import (
	"github.com/schemaforge/schemaforge/diagnostics"
)

// PostgresConnector implements the Connector interface for PostgreSQL.
type PostgresConnector struct {
	baseConnector
}

// NewPostgresConnector creates a new PostgreSQL connector.
func NewPostgresConnector() *PostgresConnector {
	return &PostgresConnector{baseConnector{
		name:                "PostgreSQL",
		provider:            "postgresql",
		providerAliases:     []string{"postgres"},
		flavour:             FlavourPostgres,
		maxIdentifierLength: 63,
		minServerVersion:    "9.6",
		capabilities: Capabilities(CapabilityEnums | CapabilityJson | CapabilityScalarLists |
			CapabilityDecimal | CapabilityAutoIncrement | CapabilityAutoIncrementAllowedOnNonID |
			CapabilityAutoIncrementMultipleAllowed | CapabilityAutoIncrementNonIndexedAllowed |
			CapabilityCompoundIDs | CapabilityCompositeTypes | CapabilityNamedPrimaryKeys |
			CapabilityNamedForeignKeys | CapabilityNamedDefaultValues | CapabilityTransactionalDDL |
			CapabilityMultiSchema | CapabilityViews | CapabilityFullTextIndex),
		fkActions: allReferentialActions,
		constraintScopes: []ConstraintScope{
			{Kinds: []ConstraintKind{ConstraintKindPrimaryKey, ConstraintKindForeignKey, ConstraintKindDefault}},
		},
		indexTypes: []IndexAlgorithm{
			IndexAlgorithmBTree,
			IndexAlgorithmHash,
			IndexAlgorithmGist,
			IndexAlgorithmGin,
			IndexAlgorithmSpGist,
			IndexAlgorithmBrin,
		},
		urlSchemes: []string{"postgresql://", "postgres://"},
		catalogue: []NativeTypeConstructor{
			{Name: "SmallInt", Scalar: ScalarTypeInt},
			{Name: "Integer", Scalar: ScalarTypeInt},
			{Name: "Oid", Scalar: ScalarTypeInt},
			{Name: "BigInt", Scalar: ScalarTypeBigInt},
			{Name: "Real", Scalar: ScalarTypeFloat},
			{Name: "DoublePrecision", Scalar: ScalarTypeFloat},
			{Name: "Decimal", OptionalArgs: 2, Scalar: ScalarTypeDecimal},
			{Name: "Money", Scalar: ScalarTypeDecimal},
			{Name: "VarChar", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Char", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Text", Scalar: ScalarTypeString},
			{Name: "Citext", Scalar: ScalarTypeString},
			{Name: "Uuid", Scalar: ScalarTypeString},
			{Name: "Inet", Scalar: ScalarTypeString},
			{Name: "Bit", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "VarBit", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Xml", Scalar: ScalarTypeString},
			{Name: "Bytea", Scalar: ScalarTypeBytes},
			{Name: "Timestamp", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Timestamptz", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Date", Scalar: ScalarTypeDateTime},
			{Name: "Time", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Timetz", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Boolean", Scalar: ScalarTypeBoolean},
			{Name: "Json", Scalar: ScalarTypeJson},
			{Name: "JsonB", Scalar: ScalarTypeJson},
		},
		scalarDefaults: map[ScalarType]NativeTypeInstance{
			ScalarTypeBoolean:  {Name: "Boolean"},
			ScalarTypeInt:      {Name: "Integer"},
			ScalarTypeBigInt:   {Name: "BigInt"},
			ScalarTypeFloat:    {Name: "DoublePrecision"},
			ScalarTypeDecimal:  {Name: "Decimal", Args: []int{65, 30}},
			ScalarTypeString:   {Name: "Text"},
			ScalarTypeDateTime: {Name: "Timestamp", Args: []int{3}},
			ScalarTypeJson:     {Name: "JsonB"},
			ScalarTypeBytes:    {Name: "Bytea"},
		},
	}}
}

// ValidateModel adds PostgreSQL-specific index rules on top of the shared
// model checks.
func (c *PostgresConnector) ValidateModel(model ModelWalker, mode RelationMode, diags *diagnostics.Diagnostics) {
	c.baseConnector.ValidateModel(model, mode, diags)

	for _, index := range model.Indexes() {
		// SP-GiST indexes cover a single column only.
		if index.Algorithm() == IndexAlgorithmSpGist && len(index.Columns()) > 1 {
			diags.PushError(diagnostics.NewModelValidationError(
				"SpGist does not support multi-column indices.",
				model.Name(), index.Span()))
		}
	}
}
