// Package connector defines the per-backend capability contract: feature
// flags, native type catalogues, referential action support, constraint
// naming rules and validation hooks.
package connector

import (
	"fmt"

	"github.com/schemaforge/schemaforge/diagnostics"
)

// Flavour identifies the database product family.
type Flavour int

const (
	FlavourPostgres Flavour = iota
	FlavourMySQL
	FlavourSQLite
	FlavourSQLServer
	FlavourCockroach
)

// String returns the flavour name.
func (f Flavour) String() string {
	switch f {
	case FlavourPostgres:
		return "Postgres"
	case FlavourMySQL:
		return "MySQL"
	case FlavourSQLite:
		return "SQLite"
	case FlavourSQLServer:
		return "SQLServer"
	case FlavourCockroach:
		return "Cockroach"
	default:
		return "Unknown"
	}
}

// Connector answers, for a given backend, "what is legal and what does it
// mean". Implementations are pure: no I/O, no failure modes outside of the
// diagnostics they push.
type Connector interface {
	Name() string
	ProviderName() string
	IsProvider(name string) bool
	Flavour() Flavour

	Capabilities() Capabilities
	HasCapability(c Capability) bool
	MaxIdentifierLength() int
	// MinimumServerVersion is the oldest server release the planner's output
	// is valid for, or "" when any release is acceptable.
	MinimumServerVersion() string

	DefaultRelationMode() RelationMode
	AllowedRelationModeSettings() []RelationMode
	// ReferentialActions are the database-enforced actions; emulated actions
	// apply under RelationModePrisma.
	ReferentialActions() []ReferentialAction
	EmulatedReferentialActions() []ReferentialAction
	SupportsReferentialAction(mode RelationMode, action ReferentialAction) bool

	// ConstraintViolationScopes drives the shared name-collision checker.
	// An empty list disables the check for this backend.
	ConstraintViolationScopes() []ConstraintScope

	AvailableNativeTypeConstructors() []NativeTypeConstructor
	FindNativeTypeConstructor(name string) *NativeTypeConstructor
	ParseNativeType(name string, args []string, span diagnostics.Span, diags *diagnostics.Diagnostics) *NativeTypeInstance
	ScalarTypeForNativeType(nt NativeTypeInstance) ScalarType
	DefaultNativeTypeForScalarType(st ScalarType) NativeTypeInstance
	NativeTypeIsDefaultForScalarType(nt NativeTypeInstance, st ScalarType) bool

	SupportedIndexTypes() []IndexAlgorithm
	SupportsIndexType(algo IndexAlgorithm) bool

	// Validation hooks invoked once per schema entity during the validation
	// pass. Each may append diagnostics but must not abort the pass.
	ValidateModel(model ModelWalker, mode RelationMode, diags *diagnostics.Diagnostics)
	ValidateEnum(enum EnumWalker, diags *diagnostics.Diagnostics)
	ValidateRelationField(relation RelationWalker, mode RelationMode, diags *diagnostics.Diagnostics)
	ValidateDatasource(ds DatasourceWalker, diags *diagnostics.Diagnostics)

	// ValidateURL is a syntactic pre-check of a connection string before any
	// network I/O is attempted.
	ValidateURL(url string) error
}

// ForProvider resolves a connector by backend identifier string.
func ForProvider(provider string) (Connector, error) {
	for _, c := range All() {
		if c.IsProvider(provider) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unsupported provider: %q", provider)
}

// All returns every built-in connector.
func All() []Connector {
	return []Connector{
		NewPostgresConnector(),
		NewMySQLConnector(),
		NewSQLiteConnector(),
		NewMSSQLConnector(),
		NewCockroachConnector(),
	}
}
