package dbclient

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"databridge/internal/domain"

	mssql "github.com/microsoft/go-mssqldb"
)

var sqlServerDialect = dialect{
	listTables: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`,
	listColumns: `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`,
	quote: func(name string) string {
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	},
	preview: func(quotedTable string, limit int) string {
		return fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, quotedTable)
	},
	normalize: normalizeSQLServer,
}

// normalizeSQLServer renders UNIQUEIDENTIFIER columns in their canonical
// string form instead of the raw mixed-endian bytes the driver scans.
func normalizeSQLServer(colType *sql.ColumnType, v any) (any, bool) {
	b, ok := v.([]byte)
	if !ok || colType == nil || colType.DatabaseTypeName() != "UNIQUEIDENTIFIER" {
		return nil, false
	}
	var id mssql.UniqueIdentifier
	if err := id.Scan(b); err != nil {
		return nil, false
	}
	return id.String(), true
}

// buildSQLServerDSN constructs a sqlserver:// URL for go-mssqldb.
func buildSQLServerDSN(conn *domain.DatabaseConnection, password string, timeout time.Duration) string {
	port := conn.Port
	if port == 0 {
		port = 1433
	}
	q := url.Values{}
	if conn.Database != "" {
		q.Set("database", conn.Database)
	}
	q.Set("connection timeout", strconv.Itoa(int(timeout.Seconds())))
	switch conn.SSLMode {
	case "disable":
		q.Set("encrypt", "disable")
	case "require":
		q.Set("encrypt", "true")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(conn.Username, password),
		Host:     net.JoinHostPort(conn.Host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}
