package dbclient

import (
	"net"
	"strconv"
	"strings"
	"time"

	"databridge/internal/domain"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	listTables: "SHOW TABLES",
	listColumns: `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
	quote: func(name string) string {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	},
	preview: limitPreview,
}

// buildMySQLDSN constructs a MySQL DSN from a DatabaseConnection.
func buildMySQLDSN(conn *domain.DatabaseConnection, password string, timeout time.Duration) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(port))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Timeout = timeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if conn.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}
