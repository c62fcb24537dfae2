package connector

import (
	"github.com/schemaforge/schemaforge/diagnostics"
)

// MSSQLConnector implements the Connector interface for Microsoft SQL Server.
type MSSQLConnector struct {
	baseConnector
}

// NewMSSQLConnector creates a new SQL Server connector.
func NewMSSQLConnector() *MSSQLConnector {
	return &MSSQLConnector{baseConnector{
		name:                "SQL Server",
		provider:            "sqlserver",
		flavour:             FlavourSQLServer,
		maxIdentifierLength: 128,
		capabilities: Capabilities(CapabilityDecimal | CapabilityAutoIncrement |
			CapabilityAutoIncrementAllowedOnNonID | CapabilityAutoIncrementMultipleAllowed |
			CapabilityCompoundIDs | CapabilityNamedPrimaryKeys | CapabilityNamedForeignKeys |
			CapabilityNamedDefaultValues | CapabilityTransactionalDDL | CapabilityMultiSchema |
			CapabilityViews),
		// Restrict is not a valid referential action on SQL Server.
		fkActions: []ReferentialAction{
			ReferentialActionNoAction,
			ReferentialActionCascade,
			ReferentialActionSetNull,
			ReferentialActionSetDefault,
		},
		emulatedActions: []ReferentialAction{
			ReferentialActionNoAction,
			ReferentialActionCascade,
			ReferentialActionSetNull,
			ReferentialActionSetDefault,
		},
		constraintScopes: []ConstraintScope{
			{Kinds: []ConstraintKind{ConstraintKindPrimaryKey, ConstraintKindForeignKey, ConstraintKindDefault}},
			{PerModel: true, Kinds: []ConstraintKind{ConstraintKindPrimaryKey, ConstraintKindKeyOrIndex}},
		},
		urlSchemes: []string{"sqlserver://"},
		catalogue: []NativeTypeConstructor{
			{Name: "Bit", Scalar: ScalarTypeBoolean},
			{Name: "TinyInt", Scalar: ScalarTypeInt},
			{Name: "SmallInt", Scalar: ScalarTypeInt},
			{Name: "Int", Scalar: ScalarTypeInt},
			{Name: "BigInt", Scalar: ScalarTypeBigInt},
			{Name: "Real", Scalar: ScalarTypeFloat},
			{Name: "Float", OptionalArgs: 1, Scalar: ScalarTypeFloat},
			{Name: "Decimal", OptionalArgs: 2, Scalar: ScalarTypeDecimal},
			{Name: "Money", Scalar: ScalarTypeDecimal},
			{Name: "SmallMoney", Scalar: ScalarTypeDecimal},
			{Name: "NVarChar", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "VarChar", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "NChar", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Char", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Text", Scalar: ScalarTypeString},
			{Name: "NText", Scalar: ScalarTypeString},
			{Name: "UniqueIdentifier", Scalar: ScalarTypeString},
			{Name: "Xml", Scalar: ScalarTypeString},
			{Name: "Binary", OptionalArgs: 1, Scalar: ScalarTypeBytes},
			{Name: "VarBinary", OptionalArgs: 1, Scalar: ScalarTypeBytes},
			{Name: "Image", Scalar: ScalarTypeBytes},
			{Name: "Date", Scalar: ScalarTypeDateTime},
			{Name: "Time", Scalar: ScalarTypeDateTime},
			{Name: "DateTime", Scalar: ScalarTypeDateTime},
			{Name: "DateTime2", Scalar: ScalarTypeDateTime},
			{Name: "SmallDateTime", Scalar: ScalarTypeDateTime},
			{Name: "DateTimeOffset", Scalar: ScalarTypeDateTime},
		},
		scalarDefaults: map[ScalarType]NativeTypeInstance{
			ScalarTypeBoolean:  {Name: "Bit"},
			ScalarTypeInt:      {Name: "Int"},
			ScalarTypeBigInt:   {Name: "BigInt"},
			ScalarTypeFloat:    {Name: "Float", Args: []int{53}},
			ScalarTypeDecimal:  {Name: "Decimal", Args: []int{32, 16}},
			ScalarTypeString:   {Name: "NVarChar", Args: []int{1000}},
			ScalarTypeDateTime: {Name: "DateTime2"},
			ScalarTypeBytes:    {Name: "VarBinary"},
		},
	}}
}

// ValidateRelationField rejects multiple cascade paths onto the same table,
// which SQL Server refuses at DDL time.
func (c *MSSQLConnector) ValidateRelationField(relation RelationWalker, mode RelationMode, diags *diagnostics.Diagnostics) {
	c.baseConnector.ValidateRelationField(relation, mode, diags)

	if mode == RelationModeForeignKeys && relation.ReferencingModel() == relation.ReferencedModel() {
		for _, action := range []ReferentialAction{relation.OnDelete(), relation.OnUpdate()} {
			if action == ReferentialActionCascade || action == ReferentialActionSetNull {
				diags.PushError(diagnostics.NewValidationError(
					"Self-referencing relations on SQL Server must use NoAction for onDelete and onUpdate.",
					relation.Span()))
				return
			}
		}
	}
}
