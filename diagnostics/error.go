package diagnostics

import "fmt"

// SchemaError represents a validation error in a declarative schema.
type SchemaError struct {
	span    Span
	message string
}

// NewSchemaError creates a new SchemaError with the given message and span.
func NewSchemaError(message string, span Span) SchemaError {
	return SchemaError{message: message, span: span}
}

// Message returns the error message.
func (e SchemaError) Message() string {
	return e.message
}

// Span returns the span of the error.
func (e SchemaError) Span() Span {
	return e.span
}

// NewValidationError creates a general validation error.
func NewValidationError(message string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Error validating: %s", message), span)
}

// NewModelValidationError creates an error for table-level validation issues.
func NewModelValidationError(message, modelName string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Error validating model \"%s\": %s", modelName, message), span)
}

// NewEnumValidationError creates an error for enum validation issues.
func NewEnumValidationError(message, enumName string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Error validating enum `%s`: %s", enumName, message), span)
}

// NewFieldValidationError creates an error for column-level validation issues.
func NewFieldValidationError(message, modelName, field string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Error validating field `%s` in model `%s`: %s", field, modelName, message), span)
}

// NewSourceValidationError creates an error for datasource validation issues.
func NewSourceValidationError(message, source string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Error validating datasource `%s`: %s", source, message), span)
}

// NewNativeTypeNameUnknownError creates an error for native types the
// connector does not advertise.
func NewNativeTypeNameUnknownError(connectorName, nativeType string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Native type %s is not supported for %s connector.", nativeType, connectorName), span)
}

// NewNativeTypeArgumentCountMismatchError creates an error for wrong native
// type argument counts.
func NewNativeTypeArgumentCountMismatchError(nativeType string, requiredCount, givenCount int, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Native type %s takes %d arguments, but received %d.", nativeType, requiredCount, givenCount), span)
}

// NewInvalidNativeTypeArgumentError creates an error for malformed native
// type arguments.
func NewInvalidNativeTypeArgumentError(nativeType, got, expected string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Invalid argument for type %s: %s. Allowed values: %s.", nativeType, got, expected), span)
}

// NewScaleLargerThanPrecisionError creates an error when a decimal scale
// exceeds its precision.
func NewScaleLargerThanPrecisionError(nativeType, connectorName string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("The scale must not be larger than the precision for the %s native type in %s.", nativeType, connectorName), span)
}

// NewReferentialActionNotSupportedError creates an error for referential
// actions that are illegal in the active relation mode.
func NewReferentialActionNotSupportedError(action, relationMode string, allowed []string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Invalid referential action: `%s`. Allowed values: (%s) with `relationMode = \"%s\"`.", action, joinBackticked(allowed), relationMode), span)
}

// NewConstraintNameCollisionError creates an error for constraint names that
// clash within an enforced uniqueness scope.
func NewConstraintNameCollisionError(name, scopeDescription string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("The given constraint name `%s` has to be unique in the following namespace: %s. Please provide a different name using the `map` argument.", name, scopeDescription), span)
}

// NewIdentifierTooLongError creates an error for identifiers exceeding the
// connector's limit.
func NewIdentifierTooLongError(identifier string, maxLength int, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("The name `%s` is too long. The maximum identifier length is %d characters.", identifier, maxLength), span)
}

// NewDefaultUnknownFunctionError creates an error for unknown default value
// functions.
func NewDefaultUnknownFunctionError(functionName string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Unknown function in @default(): `%s`.", functionName), span)
}

// NewScalarListFieldsAreNotSupportedError creates an error for list columns
// on connectors without scalar list support.
func NewScalarListFieldsAreNotSupportedError(modelName, fieldName string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Field \"%s\" in model \"%s\" can't be a list. The current connector does not support lists of primitive types.", fieldName, modelName), span)
}

// NewAutoIncrementNotSupportedError creates an error for auto-increment
// columns on connectors without the capability.
func NewAutoIncrementNotSupportedError(modelName, fieldName string, span Span) SchemaError {
	return NewSchemaError(fmt.Sprintf("Field \"%s\" in model \"%s\" cannot use autoincrement(). The current connector does not support auto-incrementing columns.", fieldName, modelName), span)
}

func joinBackticked(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += "`" + v + "`"
	}
	return out
}
