package connector

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/diagnostics"
)

// baseConnector holds the default answers for every Connector method.
// Each backend is one concrete struct embedding it, overriding only where
// its behavior actually differs.
type baseConnector struct {
	name                string
	provider            string
	providerAliases     []string
	flavour             Flavour
	capabilities        Capabilities
	maxIdentifierLength int
	minServerVersion    string

	relationModes   []RelationMode
	fkActions       []ReferentialAction
	emulatedActions []ReferentialAction

	constraintScopes []ConstraintScope
	indexTypes       []IndexAlgorithm

	catalogue      []NativeTypeConstructor
	scalarDefaults map[ScalarType]NativeTypeInstance

	urlSchemes []string
}

func (c *baseConnector) Name() string         { return c.name }
func (c *baseConnector) ProviderName() string { return c.provider }
func (c *baseConnector) Flavour() Flavour     { return c.flavour }

func (c *baseConnector) IsProvider(name string) bool {
	if name == c.provider {
		return true
	}
	for _, alias := range c.providerAliases {
		if name == alias {
			return true
		}
	}
	return false
}

func (c *baseConnector) Capabilities() Capabilities { return c.capabilities }

func (c *baseConnector) HasCapability(cap Capability) bool {
	return c.capabilities.Contains(cap)
}

func (c *baseConnector) MaxIdentifierLength() int     { return c.maxIdentifierLength }
func (c *baseConnector) MinimumServerVersion() string { return c.minServerVersion }

func (c *baseConnector) DefaultRelationMode() RelationMode {
	return RelationModeForeignKeys
}

func (c *baseConnector) AllowedRelationModeSettings() []RelationMode {
	if len(c.relationModes) > 0 {
		return c.relationModes
	}
	return []RelationMode{RelationModeForeignKeys, RelationModePrisma}
}

func (c *baseConnector) ReferentialActions() []ReferentialAction {
	return c.fkActions
}

func (c *baseConnector) EmulatedReferentialActions() []ReferentialAction {
	if len(c.emulatedActions) > 0 {
		return c.emulatedActions
	}
	return []ReferentialAction{
		ReferentialActionNoAction,
		ReferentialActionRestrict,
		ReferentialActionCascade,
		ReferentialActionSetNull,
	}
}

// SupportsReferentialAction dispatches on the relation mode to the enforced
// or emulated action set. Consulted before accepting an action in a relation
// attribute; a miss is a validation error, never a runtime failure.
func (c *baseConnector) SupportsReferentialAction(mode RelationMode, action ReferentialAction) bool {
	actions := c.fkActions
	if mode == RelationModePrisma {
		actions = c.EmulatedReferentialActions()
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func (c *baseConnector) ConstraintViolationScopes() []ConstraintScope {
	return c.constraintScopes
}

func (c *baseConnector) AvailableNativeTypeConstructors() []NativeTypeConstructor {
	return c.catalogue
}

func (c *baseConnector) FindNativeTypeConstructor(name string) *NativeTypeConstructor {
	for i := range c.catalogue {
		if strings.EqualFold(c.catalogue[i].Name, name) {
			return &c.catalogue[i]
		}
	}
	return nil
}

func (c *baseConnector) ParseNativeType(name string, args []string, span diagnostics.Span, diags *diagnostics.Diagnostics) *NativeTypeInstance {
	return parseNativeType(c.name, c.catalogue, name, args, span, diags)
}

func (c *baseConnector) ScalarTypeForNativeType(nt NativeTypeInstance) ScalarType {
	if ctor := c.FindNativeTypeConstructor(nt.Name); ctor != nil {
		return ctor.Scalar
	}
	// Instances are only constructed through ParseNativeType, so this is
	// unreachable for well-formed input.
	return ScalarTypeString
}

func (c *baseConnector) DefaultNativeTypeForScalarType(st ScalarType) NativeTypeInstance {
	nt, ok := c.scalarDefaults[st]
	if !ok {
		panic(fmt.Sprintf("connector %s: no default native type for scalar type %s", c.name, st))
	}
	return nt
}

func (c *baseConnector) NativeTypeIsDefaultForScalarType(nt NativeTypeInstance, st ScalarType) bool {
	def, ok := c.scalarDefaults[st]
	return ok && strings.EqualFold(def.Name, nt.Name)
}

func (c *baseConnector) SupportedIndexTypes() []IndexAlgorithm {
	if len(c.indexTypes) > 0 {
		return c.indexTypes
	}
	return []IndexAlgorithm{IndexAlgorithmBTree}
}

func (c *baseConnector) SupportsIndexType(algo IndexAlgorithm) bool {
	for _, a := range c.SupportedIndexTypes() {
		if a == algo {
			return true
		}
	}
	return false
}

// Default validation hooks. Backends override where they have entity-level
// rules; the shared checks (identifier length, capability-dependent column
// shapes) run here for everyone.

func (c *baseConnector) ValidateModel(model ModelWalker, mode RelationMode, diags *diagnostics.Diagnostics) {
	c.validateIdentifierLength(model.Name(), model.Span(), diags)

	autoIncrementFields := 0
	for _, field := range model.Fields() {
		if field.IsList() && !c.HasCapability(CapabilityScalarLists) {
			diags.PushError(diagnostics.NewScalarListFieldsAreNotSupportedError(model.Name(), field.Name(), field.Span()))
		}
		if field.IsAutoIncrement() {
			autoIncrementFields++
			if !c.HasCapability(CapabilityAutoIncrement) {
				diags.PushError(diagnostics.NewAutoIncrementNotSupportedError(model.Name(), field.Name(), field.Span()))
			} else if !field.IsID() && !c.HasCapability(CapabilityAutoIncrementAllowedOnNonID) {
				diags.PushError(diagnostics.NewFieldValidationError(
					"Only `@id` fields can use autoincrement() on this connector.",
					model.Name(), field.Name(), field.Span()))
			}
		}
	}
	if autoIncrementFields > 1 && !c.HasCapability(CapabilityAutoIncrementMultipleAllowed) {
		diags.PushError(diagnostics.NewModelValidationError(
			"At most one field can use autoincrement() on this connector.",
			model.Name(), model.Span()))
	}

	for _, index := range model.Indexes() {
		if !c.SupportsIndexType(index.Algorithm()) {
			diags.PushError(diagnostics.NewModelValidationError(
				fmt.Sprintf("The %s index type is not supported with the current connector.", index.Algorithm()),
				model.Name(), index.Span()))
		}
		c.validateIdentifierLength(index.Name(), index.Span(), diags)
	}
}

func (c *baseConnector) ValidateEnum(enum EnumWalker, diags *diagnostics.Diagnostics) {
	if !c.HasCapability(CapabilityEnums) {
		diags.PushError(diagnostics.NewEnumValidationError(
			fmt.Sprintf("You defined the enum `%s`. But the current connector does not support enums.", enum.Name()),
			enum.Name(), enum.Span()))
		return
	}
	c.validateIdentifierLength(enum.Name(), enum.Span(), diags)
}

func (c *baseConnector) ValidateRelationField(relation RelationWalker, mode RelationMode, diags *diagnostics.Diagnostics) {
	for _, action := range []ReferentialAction{relation.OnDelete(), relation.OnUpdate()} {
		if !c.SupportsReferentialAction(mode, action) {
			allowed := c.fkActions
			if mode == RelationModePrisma {
				allowed = c.EmulatedReferentialActions()
			}
			names := make([]string, len(allowed))
			for i, a := range allowed {
				names[i] = a.String()
			}
			diags.PushError(diagnostics.NewReferentialActionNotSupportedError(action.String(), string(mode), names, relation.Span()))
		}
	}
}

func (c *baseConnector) ValidateDatasource(ds DatasourceWalker, diags *diagnostics.Diagnostics) {
	allowed := false
	for _, m := range c.AllowedRelationModeSettings() {
		if m == ds.RelationMode() {
			allowed = true
		}
	}
	if !allowed {
		diags.PushError(diagnostics.NewSourceValidationError(
			fmt.Sprintf("Invalid relation mode setting: %q.", ds.RelationMode()),
			ds.Name(), ds.Span()))
	}
	if url := ds.URL(); url != "" {
		if err := c.ValidateURL(url); err != nil {
			diags.PushError(diagnostics.NewSourceValidationError(err.Error(), ds.Name(), ds.Span()))
		}
	}
}

func (c *baseConnector) ValidateURL(url string) error {
	if url == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	// env: URLs are resolved by the configuration layer after validation.
	if strings.HasPrefix(url, "env:") {
		return nil
	}
	for _, scheme := range c.urlSchemes {
		if strings.HasPrefix(url, scheme) {
			return nil
		}
	}
	return fmt.Errorf("must start with the protocol `%s`", c.urlSchemes[0])
}

func (c *baseConnector) validateIdentifierLength(name string, span diagnostics.Span, diags *diagnostics.Diagnostics) {
	if c.maxIdentifierLength > 0 && len(name) > c.maxIdentifierLength {
		diags.PushError(diagnostics.NewIdentifierTooLongError(name, c.maxIdentifierLength, span))
	}
}

var allReferentialActions = []ReferentialAction{
	ReferentialActionNoAction,
	ReferentialActionRestrict,
	ReferentialActionCascade,
	ReferentialActionSetNull,
	ReferentialActionSetDefault,
}
