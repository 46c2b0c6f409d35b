package model

import "fmt"

// SchemaViolation is returned when a node would be built, or a tree checked,
// with content, marks or attributes that its type does not allow.
type SchemaViolation struct {
	// Name of the node or mark type whose constraint was violated.
	TypeName string
	Message  string
}

// NewSchemaViolation is the constructor for SchemaViolation.
func NewSchemaViolation(typeName, format string, args ...interface{}) *SchemaViolation {
	return &SchemaViolation{TypeName: typeName, Message: fmt.Sprintf(format, args...)}
}

// Error returns the error message.
func (e *SchemaViolation) Error() string {
	return "schema violation: " + e.Message
}
