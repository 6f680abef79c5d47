package convert

import (
	"fmt"
	"strings"

	"databridge/internal/domain"
)

// EmptyNotice is the whole SQL output for an empty sample set.
const EmptyNotice = "-- No data to convert."

// ToSQL renders a CREATE TABLE statement typed from the first record, then
// one INSERT per record. Columns come from the first record only; fields a
// later record adds are dropped and fields it lacks are NULL.
func ToSQL(set domain.SampleSet, table string) string {
	if len(set) == 0 {
		return EmptyNotice
	}

	first := set[0]
	columns := first.Keys()

	var create strings.Builder
	fmt.Fprintf(&create, "CREATE TABLE `%s` (\n", table)
	for _, f := range first {
		fmt.Fprintf(&create, "  `%s` %s,\n", f.Key, InferColumnType(f.Key, f.Value))
	}

	var out strings.Builder
	out.WriteString(strings.TrimRight(create.String(), ",\n"))
	out.WriteString("\n);\n\n")

	columnList := "`" + strings.Join(columns, "`, `") + "`"
	values := make([]string, len(columns))
	for _, rec := range set {
		for i, col := range columns {
			v, _ := rec.Get(col)
			values[i] = SQLLiteral(v)
		}
		fmt.Fprintf(&out, "INSERT INTO `%s` (%s) VALUES (%s);\n", table, columnList, strings.Join(values, ", "))
	}
	return out.String()
}

// SQLLiteral renders one value for a VALUES list. Strings only get their
// single quotes doubled; nested objects and arrays are written as quoted
// compact JSON.
func SQLLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return domain.FormatFloat(float64(val))
	case float64:
		return domain.FormatFloat(val)
	case string:
		return quote(val)
	case domain.Record, []any:
		b, err := domain.EncodeJSON(val)
		if err != nil {
			return quote(fmt.Sprint(val))
		}
		return quote(string(b))
	default:
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
