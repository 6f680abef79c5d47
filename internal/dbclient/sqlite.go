package dbclient

import (
	"databridge/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	listTables: `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	quote:      quoteDouble,
	preview:    limitPreview,
}

// buildSQLiteDSN opens an external SQLite file with a busy timeout so a
// preview does not fail while another process holds a write lock.
func buildSQLiteDSN(conn *domain.DatabaseConnection) string {
	return conn.Host + "?_pragma=busy_timeout(5000)"
}
