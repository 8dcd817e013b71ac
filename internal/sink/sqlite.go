package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// SQLiteSink writes each output to a table of a local SQLite file.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database file at path.
func NewSQLite(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	return &SQLiteSink{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Write recreates the table with the columns of t and inserts every row in
// one transaction.
func (s *SQLiteSink) Write(ctx context.Context, name string, t *table.Table) error {
	tableName := toTableName(name)
	t = foldDuplicateNames(t)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range replaceTableSQL(tableName, t, sqliteType) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: recreate %s: %w", tableName, err)
		}
	}

	if t.Width() > 0 && t.Len() > 0 {
		cols := make([]string, t.Width())
		marks := make([]string, t.Width())
		for i, c := range t.Columns() {
			cols[i] = quoteIdentifier(c)
			marks[i] = "?"
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdentifier(tableName), strings.Join(cols, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return fmt.Errorf("database: prepare insert %s: %w", tableName, err)
		}
		defer stmt.Close()

		types := columnTypes(t)
		args := make([]any, t.Width())
		for i := 0; i < t.Len(); i++ {
			for j, v := range t.Row(i) {
				args[j] = sqliteValue(v, types[j])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("database: insert into %s row %d: %w", tableName, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: commit %s: %w", tableName, err)
	}
	logging.FromContext(ctx).Info("table written to sqlite", "table", tableName, "rows", t.Len())
	return nil
}

// foldDuplicateNames suffixes columns that repeat an earlier name up to case
// ("SIREN" then "siren" becomes "siren_2"). SQLite compares identifiers
// case-insensitively.
func foldDuplicateNames(t *table.Table) *table.Table {
	seen := make(map[string]int)
	rename := make(map[string]string)
	for _, c := range t.Columns() {
		k := strings.ToLower(c)
		seen[k]++
		if n := seen[k]; n > 1 {
			rename[c] = fmt.Sprintf("%s_%d", c, n)
		}
	}
	if len(rename) == 0 {
		return t
	}
	return t.RenameFunc(func(c string) string {
		if r, ok := rename[c]; ok {
			return r
		}
		return c
	})
}

func sqliteType(ft core.FieldType) string {
	switch ft {
	case core.FieldInteger, core.FieldYear, core.FieldBoolean:
		return "INTEGER"
	case core.FieldNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}

// sqliteValue stores dates and times as ISO text.
func sqliteValue(v any, ft core.FieldType) any {
	switch ft {
	case core.FieldDate, core.FieldDatetime:
		if table.IsNull(v) {
			return nil
		}
		return table.Text(v)
	}
	return sqlValue(v, ft)
}
