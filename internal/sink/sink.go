// Package sink writes output tables to their destinations: CSV files in the
// processed-data directory, and optionally PostgreSQL, SQLite and an object
// store.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Sink stores a named table.
type Sink interface {
	Write(ctx context.Context, name string, t *table.Table) error
}

// Multi writes to each sink in order and stops at the first error.
type Multi []Sink

func (m Multi) Write(ctx context.Context, name string, t *table.Table) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Write(ctx, name, t); err != nil {
			return err
		}
	}
	return nil
}

// EncodeCSV renders t as comma-separated RFC 4180 text with a header row.
// Nulls are empty, dates use 2006-01-02 and times RFC 3339.
func EncodeCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns()); err != nil {
		return nil, err
	}
	rec := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = table.Text(v)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// baseName strips a trailing .csv so "x" and "x.csv" address the same output.
func baseName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".csv")
}

// ColumnType infers the field type of a column from its stored values. A
// datetime column whose values carry no clock part is a date.
func ColumnType(t *table.Table, col string) core.FieldType {
	switch t.Dtype(col) {
	case "int64":
		return core.FieldInteger
	case "float64":
		return core.FieldNumber
	case "bool":
		return core.FieldBoolean
	case "datetime64":
		for _, v := range t.Values(col) {
			if tm, ok := v.(time.Time); ok && !isMidnight(tm) {
				return core.FieldDatetime
			}
		}
		return core.FieldDate
	default:
		return core.FieldString
	}
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// columnTypes infers the type of every column of t.
func columnTypes(t *table.Table) []core.FieldType {
	cols := t.Columns()
	types := make([]core.FieldType, len(cols))
	for i, c := range cols {
		types[i] = ColumnType(t, c)
	}
	return types
}

// quoteIdentifier quotes a SQL identifier, doubling embedded quotes. Column
// names such as "acheteur.id" or "Montant total" need quoting in both
// PostgreSQL and SQLite.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// toTableName derives a table name from an output name.
// "identifiants_regions_2023.csv" -> "identifiants_regions_2023"
// "Subventions 2023" -> "subventions_2023"
func toTableName(name string) string {
	return strings.ToLower(strings.ReplaceAll(baseName(name), " ", "_"))
}

// createTableSQL builds the CREATE TABLE statement for t using sqlType to
// name each column type.
func createTableSQL(name string, t *table.Table, sqlType func(core.FieldType) string) string {
	types := columnTypes(t)
	defs := make([]string, len(types))
	for i, c := range t.Columns() {
		defs[i] = quoteIdentifier(c) + " " + sqlType(types[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdentifier(name), strings.Join(defs, ", "))
}

// replaceTableSQL returns the statements that recreate name with the columns
// of t. A table without columns is only dropped: SQL tables need at least one
// column.
func replaceTableSQL(name string, t *table.Table, sqlType func(core.FieldType) string) []string {
	stmts := []string{"DROP TABLE IF EXISTS " + quoteIdentifier(name)}
	if t.Width() == 0 {
		return stmts
	}
	return append(stmts, createTableSQL(name, t, sqlType))
}
