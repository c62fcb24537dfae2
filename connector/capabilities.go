package connector

import "strings"

// Capability is a single feature toggle describing what a backend supports.
// Flags are static per backend version and never depend on schema content.
type Capability uint64

const (
	CapabilityEnums Capability = 1 << iota
	CapabilityJson
	CapabilityScalarLists
	CapabilityDecimal
	CapabilityAutoIncrement
	CapabilityAutoIncrementAllowedOnNonID
	CapabilityAutoIncrementMultipleAllowed
	CapabilityAutoIncrementNonIndexedAllowed
	CapabilityCompoundIDs
	CapabilityCompositeTypes
	CapabilityNamedPrimaryKeys
	CapabilityNamedForeignKeys
	CapabilityNamedDefaultValues
	CapabilityTransactionalDDL
	CapabilityMultiSchema
	CapabilityViews
	CapabilityIndexColumnLengthPrefixing
	CapabilityFullTextIndex
)

var capabilityNames = map[Capability]string{
	CapabilityEnums:                          "Enums",
	CapabilityJson:                           "Json",
	CapabilityScalarLists:                    "ScalarLists",
	CapabilityDecimal:                        "Decimal",
	CapabilityAutoIncrement:                  "AutoIncrement",
	CapabilityAutoIncrementAllowedOnNonID:    "AutoIncrementAllowedOnNonId",
	CapabilityAutoIncrementMultipleAllowed:   "AutoIncrementMultipleAllowed",
	CapabilityAutoIncrementNonIndexedAllowed: "AutoIncrementNonIndexedAllowed",
	CapabilityCompoundIDs:                    "CompoundIds",
	CapabilityCompositeTypes:                 "CompositeTypes",
	CapabilityNamedPrimaryKeys:               "NamedPrimaryKeys",
	CapabilityNamedForeignKeys:               "NamedForeignKeys",
	CapabilityNamedDefaultValues:             "NamedDefaultValues",
	CapabilityTransactionalDDL:               "TransactionalDdl",
	CapabilityMultiSchema:                    "MultiSchema",
	CapabilityViews:                          "Views",
	CapabilityIndexColumnLengthPrefixing:     "IndexColumnLengthPrefixing",
	CapabilityFullTextIndex:                  "FullTextIndex",
}

// String returns the capability name.
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Capabilities is an immutable bit-flag set of capabilities.
type Capabilities uint64

// Contains reports whether the set includes the given capability.
func (cs Capabilities) Contains(c Capability) bool {
	return cs&Capabilities(c) != 0
}

// String renders the set as a pipe-separated list of capability names.
func (cs Capabilities) String() string {
	var names []string
	for flag := Capability(1); flag <= CapabilityFullTextIndex; flag <<= 1 {
		if cs.Contains(flag) {
			names = append(names, flag.String())
		}
	}
	return strings.Join(names, "|")
}
