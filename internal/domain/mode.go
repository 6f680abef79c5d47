package domain

import "fmt"

// ConversionMode selects the conversion direction.
type ConversionMode string

const (
	ModeSQLToNoSQL  ConversionMode = "sql_to_nosql"
	ModeNoSQLToSQL  ConversionMode = "nosql_to_sql"
	ModeJSONToSQL   ConversionMode = "json_to_sql"
	ModeJSONToNoSQL ConversionMode = "json_to_nosql"
)

// Modes lists every supported mode in display order.
var Modes = []ConversionMode{ModeSQLToNoSQL, ModeNoSQLToSQL, ModeJSONToSQL, ModeJSONToNoSQL}

// ParseConversionMode validates s as a conversion mode.
func ParseConversionMode(s string) (ConversionMode, error) {
	m := ConversionMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

func (m ConversionMode) Valid() bool {
	switch m {
	case ModeSQLToNoSQL, ModeNoSQLToSQL, ModeJSONToSQL, ModeJSONToNoSQL:
		return true
	}
	return false
}

// ReadsUpload reports whether the mode converts an uploaded JSON file rather
// than a database preview.
func (m ConversionMode) ReadsUpload() bool {
	return m == ModeJSONToSQL || m == ModeJSONToNoSQL
}

// OutputExt is the extension of the artifact the mode produces.
func (m ConversionMode) OutputExt() string {
	switch m {
	case ModeSQLToNoSQL, ModeJSONToNoSQL:
		return ".json"
	case ModeNoSQLToSQL, ModeJSONToSQL:
		return ".sql"
	}
	return ""
}
