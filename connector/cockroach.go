package connector

// CockroachConnector implements the Connector interface for CockroachDB.
type CockroachConnector struct {
	baseConnector
}

// NewCockroachConnector creates a new CockroachDB connector.
func NewCockroachConnector() *CockroachConnector {
	return &CockroachConnector{baseConnector{
		name:                "CockroachDB",
		provider:            "cockroachdb",
		flavour:             FlavourCockroach,
		maxIdentifierLength: 63,
		minServerVersion:    "22.1",
		capabilities: Capabilities(CapabilityEnums | CapabilityJson | CapabilityScalarLists |
			CapabilityDecimal | CapabilityAutoIncrement | CapabilityAutoIncrementAllowedOnNonID |
			CapabilityAutoIncrementMultipleAllowed | CapabilityAutoIncrementNonIndexedAllowed |
			CapabilityCompoundIDs | CapabilityNamedPrimaryKeys | CapabilityNamedForeignKeys |
			CapabilityNamedDefaultValues | CapabilityTransactionalDDL | CapabilityMultiSchema |
			CapabilityViews),
		fkActions: allReferentialActions,
		constraintScopes: []ConstraintScope{
			{Kinds: []ConstraintKind{ConstraintKindPrimaryKey, ConstraintKindForeignKey, ConstraintKindDefault}},
		},
		indexTypes: []IndexAlgorithm{IndexAlgorithmBTree, IndexAlgorithmGin},
		urlSchemes: []string{"postgresql://", "postgres://"},
		catalogue: []NativeTypeConstructor{
			{Name: "Int2", Scalar: ScalarTypeInt},
			{Name: "Int4", Scalar: ScalarTypeInt},
			{Name: "Int8", Scalar: ScalarTypeBigInt},
			{Name: "Float4", Scalar: ScalarTypeFloat},
			{Name: "Float8", Scalar: ScalarTypeFloat},
			{Name: "Decimal", OptionalArgs: 2, Scalar: ScalarTypeDecimal},
			{Name: "String", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Char", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Uuid", Scalar: ScalarTypeString},
			{Name: "Inet", Scalar: ScalarTypeString},
			{Name: "Bit", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "VarBit", OptionalArgs: 1, Scalar: ScalarTypeString},
			{Name: "Bytes", Scalar: ScalarTypeBytes},
			{Name: "Timestamp", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Timestamptz", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Date", Scalar: ScalarTypeDateTime},
			{Name: "Time", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Timetz", OptionalArgs: 1, Scalar: ScalarTypeDateTime},
			{Name: "Bool", Scalar: ScalarTypeBoolean},
			{Name: "JsonB", Scalar: ScalarTypeJson},
		},
		scalarDefaults: map[ScalarType]NativeTypeInstance{
			ScalarTypeBoolean:  {Name: "Bool"},
			ScalarTypeInt:      {Name: "Int4"},
			ScalarTypeBigInt:   {Name: "Int8"},
			ScalarTypeFloat:    {Name: "Float8"},
			ScalarTypeDecimal:  {Name: "Decimal", Args: []int{65, 30}},
			ScalarTypeString:   {Name: "String"},
			ScalarTypeDateTime: {Name: "Timestamp", Args: []int{3}},
			ScalarTypeJson:     {Name: "JsonB"},
			ScalarTypeBytes:    {Name: "Bytes"},
		},
	}}
}
