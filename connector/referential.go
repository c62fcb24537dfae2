package connector

import "fmt"

// RelationMode controls whether referential integrity is enforced by the
// database (foreign keys) or emulated in the execution layer.
type RelationMode string

const (
	RelationModeForeignKeys RelationMode = "foreignKeys"
	RelationModePrisma      RelationMode = "prisma"
)

// ReferentialAction is the action taken on related rows when a referenced
// row is updated or deleted.
type ReferentialAction int

const (
	ReferentialActionNoAction ReferentialAction = iota
	ReferentialActionRestrict
	ReferentialActionCascade
	ReferentialActionSetNull
	ReferentialActionSetDefault
)

// String returns the schema-facing name of the action.
func (a ReferentialAction) String() string {
	switch a {
	case ReferentialActionNoAction:
		return "NoAction"
	case ReferentialActionRestrict:
		return "Restrict"
	case ReferentialActionCascade:
		return "Cascade"
	case ReferentialActionSetNull:
		return "SetNull"
	case ReferentialActionSetDefault:
		return "SetDefault"
	default:
		return "NoAction"
	}
}

// ParseReferentialAction parses a schema-facing action name.
func ParseReferentialAction(s string) (ReferentialAction, error) {
	switch s {
	case "NoAction":
		return ReferentialActionNoAction, nil
	case "Restrict":
		return ReferentialActionRestrict, nil
	case "Cascade":
		return ReferentialActionCascade, nil
	case "SetNull":
		return ReferentialActionSetNull, nil
	case "SetDefault":
		return ReferentialActionSetDefault, nil
	default:
		return 0, fmt.Errorf("unknown referential action: %s", s)
	}
}

// ConstraintKind classifies a named database constraint.
type ConstraintKind int

const (
	ConstraintKindPrimaryKey ConstraintKind = iota
	ConstraintKindForeignKey
	ConstraintKindKeyOrIndex
	ConstraintKindDefault
)

// ConstraintScope declares the uniqueness domain of constraint names: which
// constraint kinds share a namespace, and whether that namespace is global or
// per model. An empty scope list on a connector disables name-collision
// checking entirely.
type ConstraintScope struct {
	// PerModel narrows the namespace to a single model when true.
	PerModel bool
	Kinds    []ConstraintKind
}

// Description renders the scope for collision error messages.
func (s ConstraintScope) Description(modelName string) string {
	kinds := ""
	for i, k := range s.Kinds {
		if i > 0 {
			kinds += ", "
		}
		switch k {
		case ConstraintKindPrimaryKey:
			kinds += "primary key"
		case ConstraintKindForeignKey:
			kinds += "foreign key"
		case ConstraintKindKeyOrIndex:
			kinds += "indexes and unique constraints"
		case ConstraintKindDefault:
			kinds += "default constraints"
		}
	}
	if s.PerModel {
		return fmt.Sprintf("on model `%s` for %s", modelName, kinds)
	}
	return "global for " + kinds
}

// Includes reports whether the scope covers the given constraint kind.
func (s ConstraintScope) Includes(kind ConstraintKind) bool {
	for _, k := range s.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IndexAlgorithm is a database index access method.
type IndexAlgorithm int

const (
	IndexAlgorithmBTree IndexAlgorithm = iota
	IndexAlgorithmHash
	IndexAlgorithmGist
	IndexAlgorithmGin
	IndexAlgorithmSpGist
	IndexAlgorithmBrin
)

// String returns the schema-facing name of the algorithm.
func (a IndexAlgorithm) String() string {
	switch a {
	case IndexAlgorithmBTree:
		return "BTree"
	case IndexAlgorithmHash:
		return "Hash"
	case IndexAlgorithmGist:
		return "Gist"
	case IndexAlgorithmGin:
		return "Gin"
	case IndexAlgorithmSpGist:
		return "SpGist"
	case IndexAlgorithmBrin:
		return "Brin"
	default:
		return "BTree"
	}
}
