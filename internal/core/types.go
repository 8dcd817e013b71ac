package core

import "strings"

// FieldType is the declared type of a schema property.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInteger
	FieldNumber
	FieldBoolean
	FieldDate
	FieldDatetime
	FieldYear
)

var fieldTypeNames = map[FieldType]string{
	FieldString:   "string",
	FieldInteger:  "integer",
	FieldNumber:   "number",
	FieldBoolean:  "boolean",
	FieldDate:     "date",
	FieldDatetime: "datetime",
	FieldYear:     "year",
}

// String returns the canonical name of the type.
func (f FieldType) String() string {
	if s, ok := fieldTypeNames[f]; ok {
		return s
	}
	return "string"
}

// ParseFieldType decodes a declared type name. JSON Schema, Table Schema and
// the usual spreadsheet spellings are accepted; anything else, including the
// empty string, is FieldString.
func ParseFieldType(s string) FieldType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "int64", "entier":
		return FieldInteger
	case "number", "float", "double", "decimal", "numeric", "nombre":
		return FieldNumber
	case "boolean", "bool", "booleen":
		return FieldBoolean
	case "date":
		return FieldDate
	case "datetime", "date-time", "timestamp":
		return FieldDatetime
	case "year", "gyear", "annee":
		return FieldYear
	default:
		return FieldString
	}
}
