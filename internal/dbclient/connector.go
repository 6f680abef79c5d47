package dbclient

import (
	"context"
	"fmt"
	"time"

	"databridge/internal/domain"
)

// DefaultPreviewLimit is the number of records captured when a table or
// collection is selected.
const DefaultPreviewLimit = 20

// DefaultConnectTimeout bounds the initial handshake with a source.
const DefaultConnectTimeout = 5 * time.Second

// SchemaInfo describes the tables or collections of a source.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes a table/collection.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Options tune how a connector talks to its source.
type Options struct {
	ConnectTimeout time.Duration
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return o.ConnectTimeout
}

// Connector abstracts read access to an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// ListSources returns the table names (SQL) or collection names (documents).
	ListSources(ctx context.Context) ([]string, error)

	// Preview returns at most limit records of source, columns in source order.
	Preview(ctx context.Context, source string, limit int) (domain.SampleSet, error)

	// Introspect returns tables/collections with their columns or sampled fields.
	Introspect(ctx context.Context) (*SchemaInfo, error)

	// Close releases the connection.
	Close() error
}

// NewConnector creates a Connector for the given database connection.
// The password is passed separately since it never lives on the connection.
func NewConnector(conn *domain.DatabaseConnection, password string, opts Options) (Connector, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLConnector("sqlite", buildSQLiteDSN(conn), sqliteDialect)
	case domain.DatabaseDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn, password, opts.connectTimeout()), mysqlDialect)
	case domain.DatabaseDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn, password, opts.connectTimeout()), postgresDialect)
	case domain.DatabaseDriverSQLServer:
		return newSQLConnector("sqlserver", buildSQLServerDSN(conn, password, opts.connectTimeout()), sqlServerDialect)
	case domain.DatabaseDriverMongoDB:
		return newMongoConnector(conn, password, opts)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
