package sink

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// PostgresConfig holds pool settings.
type PostgresConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PostgresSink replaces the content of one table per output.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool and checks connectivity.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Close releases the pool.
func (p *PostgresSink) Close() {
	p.pool.Close()
}

// Write recreates the table with the columns of t and copies the rows in one
// transaction.
func (p *PostgresSink) Write(ctx context.Context, name string, t *table.Table) error {
	tableName := toTableName(name)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range replaceTableSQL(tableName, t, postgresType) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("database: recreate %s: %w", tableName, err)
		}
	}

	var n int64
	if t.Width() > 0 {
		n, err = tx.CopyFrom(ctx, pgx.Identifier{tableName}, t.Columns(), pgx.CopyFromRows(postgresRows(t)))
		if err != nil {
			return fmt.Errorf("database: copy into %s: %w", tableName, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: commit %s: %w", tableName, err)
	}

	logging.FromContext(ctx).Info("table copied to postgres", "table", tableName, "rows", n)
	return nil
}

func postgresType(ft core.FieldType) string {
	switch ft {
	case core.FieldInteger, core.FieldYear:
		return "bigint"
	case core.FieldNumber:
		return "double precision"
	case core.FieldBoolean:
		return "boolean"
	case core.FieldDate:
		return "date"
	case core.FieldDatetime:
		return "timestamptz"
	default:
		return "text"
	}
}

// postgresRows converts cells to values matching the column types chosen by
// createTableSQL.
func postgresRows(t *table.Table) [][]any {
	types := columnTypes(t)
	rows := make([][]any, t.Len())
	for i := range rows {
		src := t.Row(i)
		row := make([]any, len(src))
		for j, v := range src {
			row[j] = sqlValue(v, types[j])
		}
		rows[i] = row
	}
	return rows
}

// sqlValue converts a cell for a column of type ft. Text columns receive the
// CSV rendering of any non-string value.
func sqlValue(v any, ft core.FieldType) any {
	if table.IsNull(v) {
		return nil
	}
	switch ft {
	case core.FieldNumber:
		switch x := v.(type) {
		case int64:
			return float64(x)
		case float64:
			if math.IsNaN(x) {
				return nil
			}
			return x
		}
	case core.FieldInteger, core.FieldBoolean, core.FieldDate, core.FieldDatetime:
		return v
	}
	return table.Text(v)
}
