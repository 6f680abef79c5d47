package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"databridge/internal/domain"
)

// dialect holds the per-engine SQL the shared connector needs.
type dialect struct {
	// listTables returns one table name per row.
	listTables string
	// listColumns takes the table name as its only argument and returns
	// (name, type) rows. Empty means PRAGMA table_info is used instead.
	listColumns string
	quote       func(name string) string
	preview     func(quotedTable string, limit int) string
	// normalize converts driver-specific scan values; nil means none.
	normalize func(colType *sql.ColumnType, v any) (any, bool)
}

func limitPreview(quotedTable string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", quotedTable, limit)
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlConnector is the shared implementation for MySQL, Postgres, SQLite and SQL Server.
type sqlConnector struct {
	driverName string
	db         *sql.DB
	dialect    dialect
}

// newSQLConnector creates a generic SQL connector. The pool is small since a
// connector lives for a single operation.
func newSQLConnector(driverName, dsn string, d dialect) (*sqlConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &sqlConnector{driverName: driverName, db: db, dialect: d}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) ListSources(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, c.dialect.listTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *sqlConnector) Preview(ctx context.Context, table string, limit int) (domain.SampleSet, error) {
	if table == "" {
		return nil, fmt.Errorf("preview: empty table name")
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, c.dialect.preview(c.dialect.quote(table), limit))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}

	set := domain.SampleSet{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec := make(domain.Record, 0, len(cols))
		for j, v := range values {
			rec = append(rec, domain.Field{Key: cols[j], Value: c.normalize(colTypes[j], v)})
		}
		set = append(set, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return set, nil
}

func (c *sqlConnector) normalize(colType *sql.ColumnType, v any) any {
	if c.dialect.normalize != nil {
		if out, ok := c.dialect.normalize(colType, v); ok {
			return out
		}
	}
	return normalizeValue(v)
}

// normalizeValue maps scanned driver values onto the JSON-friendly kinds the
// converters understand. Date/time values become ISO-8601 strings.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	case int8:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}

func (c *sqlConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	tables, err := c.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	schema := &SchemaInfo{}
	for _, tbl := range tables {
		cols, err := c.columns(ctx, tbl)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: tbl})
			continue
		}
		schema.Tables = append(schema.Tables, TableInfo{Name: tbl, Columns: cols})
	}
	return schema, nil
}

func (c *sqlConnector) columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	if c.dialect.listColumns == "" {
		return c.pragmaColumns(ctx, table)
	}
	rows, err := c.db.QueryContext(ctx, c.dialect.listColumns, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var ci ColumnInfo
		if err := rows.Scan(&ci.Name, &ci.Type); err != nil {
			return nil, err
		}
		cols = append(cols, ci)
	}
	return cols, rows.Err()
}

// pragmaColumns uses PRAGMA table_info, which SQLite exposes instead of
// INFORMATION_SCHEMA.
func (c *sqlConnector) pragmaColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", c.dialect.quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, ColumnInfo{Name: name, Type: colType})
	}
	return cols, rows.Err()
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}
