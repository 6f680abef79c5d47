package domain

import (
	"context"
	"time"
)

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL     DatabaseDriver = "mysql"
	DatabaseDriverPostgres  DatabaseDriver = "postgres"
	DatabaseDriverSQLite    DatabaseDriver = "sqlite"
	DatabaseDriverSQLServer DatabaseDriver = "sqlserver"
	DatabaseDriverMongoDB   DatabaseDriver = "mongodb"
)

// IsSQL reports whether the driver talks to a relational (tabular) source.
func (d DatabaseDriver) IsSQL() bool {
	switch d {
	case DatabaseDriverMySQL, DatabaseDriverPostgres, DatabaseDriverSQLite, DatabaseDriverSQLServer:
		return true
	}
	return false
}

// IsDocument reports whether the driver talks to a document store.
func (d DatabaseDriver) IsDocument() bool {
	return d == DatabaseDriverMongoDB
}

// DatabaseConnection holds the metadata for connecting to an external database.
// The password is never part of this struct; saved connections keep it in a
// SecretStore keyed by the connection ID.
type DatabaseConnection struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Driver    DatabaseDriver `json:"driver"`
	Host      string         `json:"host"`     // hostname, file path (sqlite) or full URI (mongodb)
	Port      int            `json:"port"`     // 0 means driver default
	Database  string         `json:"database"` // db name, empty for sqlite
	Username  string         `json:"username"`
	SSLMode   string         `json:"sslMode"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// DatabaseConnectionStore manages CRUD operations for saved connections.
type DatabaseConnectionStore interface {
	CreateConnection(ctx context.Context, c *DatabaseConnection) error
	GetConnection(ctx context.Context, id string) (*DatabaseConnection, error)
	ListConnections(ctx context.Context) ([]DatabaseConnection, error)
	UpdateConnection(ctx context.Context, c *DatabaseConnection) error
	DeleteConnection(ctx context.Context, id string) error
}
