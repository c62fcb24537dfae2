package connector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/schemaforge/schemaforge/diagnostics"
)

// ScalarType is the small closed set of backend-independent column types.
type ScalarType int

const (
	ScalarTypeBoolean ScalarType = iota
	ScalarTypeInt
	ScalarTypeBigInt
	ScalarTypeFloat
	ScalarTypeDecimal
	ScalarTypeString
	ScalarTypeDateTime
	ScalarTypeJson
	ScalarTypeBytes
	ScalarTypeEnum
)

// String returns the schema-facing name of the scalar type.
func (t ScalarType) String() string {
	switch t {
	case ScalarTypeBoolean:
		return "Boolean"
	case ScalarTypeInt:
		return "Int"
	case ScalarTypeBigInt:
		return "BigInt"
	case ScalarTypeFloat:
		return "Float"
	case ScalarTypeDecimal:
		return "Decimal"
	case ScalarTypeString:
		return "String"
	case ScalarTypeDateTime:
		return "DateTime"
	case ScalarTypeJson:
		return "Json"
	case ScalarTypeBytes:
		return "Bytes"
	case ScalarTypeEnum:
		return "Enum"
	default:
		return "Unknown"
	}
}

// ParseScalarType parses a schema-facing scalar type name.
func ParseScalarType(s string) (ScalarType, error) {
	for t := ScalarTypeBoolean; t <= ScalarTypeEnum; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown scalar type: %s", s)
}

// NativeTypeConstructor describes one native type a backend advertises: its
// name, its argument shape and the scalar type its instances map to.
type NativeTypeConstructor struct {
	Name         string
	RequiredArgs int
	OptionalArgs int
	Scalar       ScalarType
}

// NativeTypeInstance is a resolved constructor plus concrete arguments,
// e.g. VarChar(255). Instances only exist for advertised constructors.
type NativeTypeInstance struct {
	Name string
	Args []int
}

// String renders the instance the way it appears in schema text.
func (n NativeTypeInstance) String() string {
	if len(n.Args) == 0 {
		return n.Name
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = strconv.Itoa(a)
	}
	return n.Name + "(" + strings.Join(parts, ",") + ")"
}

// Equal reports structural equality of two instances.
func (n NativeTypeInstance) Equal(other NativeTypeInstance) bool {
	if n.Name != other.Name || len(n.Args) != len(other.Args) {
		return false
	}
	for i := range n.Args {
		if n.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// parseNativeType resolves name and arguments against a catalogue. Shared by
// every connector; diagnostics carry the offending span. Returns nil when any
// error was pushed.
func parseNativeType(connectorName string, catalogue []NativeTypeConstructor, name string, args []string, span diagnostics.Span, diags *diagnostics.Diagnostics) *NativeTypeInstance {
	var ctor *NativeTypeConstructor
	for i := range catalogue {
		if strings.EqualFold(catalogue[i].Name, name) {
			ctor = &catalogue[i]
			break
		}
	}
	if ctor == nil {
		diags.PushError(diagnostics.NewNativeTypeNameUnknownError(connectorName, name, span))
		return nil
	}

	if len(args) < ctor.RequiredArgs || len(args) > ctor.RequiredArgs+ctor.OptionalArgs {
		diags.PushError(diagnostics.NewNativeTypeArgumentCountMismatchError(ctor.Name, ctor.RequiredArgs, len(args), span))
		return nil
	}

	parsed := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 0 {
			diags.PushError(diagnostics.NewInvalidNativeTypeArgumentError(ctor.Name, arg, "a nonnegative integer", span))
			return nil
		}
		parsed = append(parsed, n)
	}

	// Decimal-shaped constructors take (precision, scale).
	if len(parsed) == 2 && ctor.Scalar == ScalarTypeDecimal && parsed[1] > parsed[0] {
		diags.PushError(diagnostics.NewScaleLargerThanPrecisionError(ctor.Name, connectorName, span))
		return nil
	}

	return &NativeTypeInstance{Name: ctor.Name, Args: parsed}
}
