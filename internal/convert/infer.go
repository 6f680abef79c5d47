// Package convert turns sample sets into SQL scripts or JSON documents.
// Every function here is pure: no I/O, no shared state.
package convert

// SQL column types produced by InferColumnType.
const (
	TypeVarchar  = "VARCHAR(255)"
	TypeInt      = "INT"
	TypeFloat    = "FLOAT"
	TypeBoolean  = "BOOLEAN"
	TypeObjectID = "VARCHAR(24)"
)

// InferColumnType picks a column type from a single sample value.
// A field named _id is always VARCHAR(24). Booleans are matched before
// integers so a bool never becomes INT.
func InferColumnType(field string, value any) string {
	if field == "_id" {
		return TypeObjectID
	}
	switch value.(type) {
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	}
	return TypeVarchar
}
