package dbclient

import (
	"fmt"
	"strings"
	"time"

	"databridge/internal/domain"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	listTables: `SELECT table_name FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
	listColumns: `SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`,
	quote:   quoteDouble,
	preview: limitPreview,
}

// buildPostgresDSN constructs a keyword/value connection string for lib/pq.
func buildPostgresDSN(conn *domain.DatabaseConnection, password string, timeout time.Duration) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + pqValue(conn.Host),
		fmt.Sprintf("port=%d", port),
		"user=" + pqValue(conn.Username),
		"password=" + pqValue(password),
		"dbname=" + pqValue(conn.Database),
		"sslmode=" + pqValue(sslMode),
		fmt.Sprintf("connect_timeout=%d", int(timeout.Seconds())),
	}
	return strings.Join(parts, " ")
}

// pqValue quotes a value when it is empty or contains spaces, quotes or
// backslashes.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
