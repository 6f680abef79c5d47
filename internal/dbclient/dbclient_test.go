package dbclient

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"databridge/internal/domain"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ─────────────────────────────────────────────────────────────
// DSN builders
// ─────────────────────────────────────────────────────────────

func TestBuildMySQLDSN(t *testing.T) {
	conn := &domain.DatabaseConnection{
		Driver: domain.DatabaseDriverMySQL, Host: "db.local", Database: "shop",
		Username: "app", SSLMode: "require",
	}
	dsn := buildMySQLDSN(conn, "p@ss:word", 5*time.Second)

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if cfg.Addr != "db.local:3306" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.User != "app" || cfg.Passwd != "p@ss:word" {
		t.Errorf("credentials = %q/%q", cfg.User, cfg.Passwd)
	}
	if cfg.DBName != "shop" || !cfg.ParseTime || cfg.Timeout != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TLSConfig != "true" {
		t.Errorf("tls = %q", cfg.TLSConfig)
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	conn := &domain.DatabaseConnection{Host: "pg", Database: "analytics", Username: "reader"}
	got := buildPostgresDSN(conn, "it's secret", 5*time.Second)
	want := `host=pg port=5432 user=reader password='it\'s secret' dbname=analytics sslmode=disable connect_timeout=5`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestBuildSQLServerDSN(t *testing.T) {
	conn := &domain.DatabaseConnection{Host: "mssql", Port: 14330, Database: "erp", Username: "sa", SSLMode: "disable"}
	dsn := buildSQLServerDSN(conn, "Pa ss/1", 3*time.Second)

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if u.Scheme != "sqlserver" || u.Host != "mssql:14330" {
		t.Errorf("url = %s", dsn)
	}
	if pw, _ := u.User.Password(); pw != "Pa ss/1" {
		t.Errorf("password = %q", pw)
	}
	q := u.Query()
	if q.Get("database") != "erp" || q.Get("encrypt") != "disable" || q.Get("connection timeout") != "3" {
		t.Errorf("query = %v", q)
	}
}

func TestBuildMongoURI(t *testing.T) {
	uri, db := buildMongoURI(&domain.DatabaseConnection{Host: "localhost", Username: "root", Database: "app"}, "pw")
	if uri != "mongodb://root:pw@localhost:27017/app" || db != "app" {
		t.Errorf("got %q, %q", uri, db)
	}

	uri, db = buildMongoURI(&domain.DatabaseConnection{Host: "mongodb+srv://u:<db_password>@cluster0.x.net/inventory?retryWrites=true"}, "s3cret")
	if !strings.Contains(uri, "u:s3cret@") {
		t.Errorf("placeholder not replaced: %q", uri)
	}
	if db != "inventory" {
		t.Errorf("db = %q", db)
	}

	_, db = buildMongoURI(&domain.DatabaseConnection{Host: "mongodb://h:27017"}, "")
	if db != "test" {
		t.Errorf("default db = %q", db)
	}
}

func TestNewConnector_UnsupportedDriver(t *testing.T) {
	_, err := NewConnector(&domain.DatabaseConnection{Driver: "oracle"}, "", Options{})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

// ─────────────────────────────────────────────────────────────
// Value normalization
// ─────────────────────────────────────────────────────────────

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	cases := []struct {
		in, want any
	}{
		{nil, nil},
		{[]byte("abc"), "abc"},
		{ts, "2024-03-01T12:30:00Z"},
		{int32(7), int64(7)},
		{float32(1.5), float64(1.5)},
		{"x", "x"},
		{true, true},
	}
	for _, c := range cases {
		if got := normalizeValue(c.in); got != c.want {
			t.Errorf("normalizeValue(%#v) = %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestNormalizeBSON(t *testing.T) {
	oid := bson.NewObjectID()
	if got := NormalizeBSON(oid); got != oid.Hex() {
		t.Errorf("ObjectID -> %#v", got)
	}
	if got := NormalizeBSON(int32(5)); got != int64(5) {
		t.Errorf("int32 -> %#v", got)
	}
	dt := bson.NewDateTimeFromTime(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))
	if got := NormalizeBSON(dt); got != "2023-01-02T03:04:05Z" {
		t.Errorf("DateTime -> %#v", got)
	}
	if got := NormalizeBSON(bson.Null{}); got != nil {
		t.Errorf("Null -> %#v", got)
	}

	arr, ok := NormalizeBSON(bson.A{int32(1), "x"}).([]any)
	if !ok || len(arr) != 2 || arr[0] != int64(1) {
		t.Errorf("A -> %#v", arr)
	}
}

func TestDocumentToRecord_KeepsOrder(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: bson.NewObjectID()},
		{Key: "zeta", Value: "z"},
		{Key: "nested", Value: bson.D{{Key: "b", Value: int32(2)}, {Key: "a", Value: true}}},
	}
	rec := DocumentToRecord(doc)
	if got := strings.Join(rec.Keys(), ","); got != "_id,zeta,nested" {
		t.Errorf("keys = %s", got)
	}
	id, _ := rec.Get("_id")
	if s, ok := id.(string); !ok || len(s) != 24 {
		t.Errorf("_id = %#v", id)
	}
	nested, _ := rec.Get("nested")
	if got := strings.Join(nested.(domain.Record).Keys(), ","); got != "b,a" {
		t.Errorf("nested keys = %s", got)
	}
}

// ─────────────────────────────────────────────────────────────
// SQLite connector against a real file
// ─────────────────────────────────────────────────────────────

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, score REAL, active BOOLEAN)`,
		`CREATE TABLE "order items" (sku TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	for i := 1; i <= 25; i++ {
		if _, err := db.Exec(`INSERT INTO users (id, name, score, active) VALUES (?, ?, ?, ?)`, i, "user", 1.5, i%2 == 0); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return path
}

func TestSQLiteConnector_ListAndPreview(t *testing.T) {
	path := seedSQLite(t)
	ctx := context.Background()

	c, err := NewConnector(&domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Host: path}, "", Options{})
	if err != nil {
		t.Fatalf("NewConnector: %v", err)
	}
	defer c.Close()

	if err := c.TestConnection(ctx); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	tables, err := c.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if strings.Join(tables, ",") != "order items,users" {
		t.Errorf("tables = %v", tables)
	}

	set, err := c.Preview(ctx, "users", DefaultPreviewLimit)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(set) != 20 {
		t.Fatalf("expected 20 records, got %d", len(set))
	}
	if got := strings.Join(set[0].Keys(), ","); got != "id,name,score,active" {
		t.Errorf("columns = %s", got)
	}
	if id, _ := set[0].Get("id"); id != int64(1) {
		t.Errorf("id = %#v", id)
	}
	if name, _ := set[0].Get("name"); name != "user" {
		t.Errorf("name = %#v", name)
	}

	// quoted identifier with a space
	if _, err := c.Preview(ctx, "order items", 5); err != nil {
		t.Errorf("Preview quoted table: %v", err)
	}
}

func TestSQLiteConnector_Introspect(t *testing.T) {
	path := seedSQLite(t)
	c, err := NewConnector(&domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Host: path}, "", Options{})
	if err != nil {
		t.Fatalf("NewConnector: %v", err)
	}
	defer c.Close()

	schema, err := c.Introspect(context.Background())
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if len(schema.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(schema.Tables))
	}
	users := schema.Tables[1]
	if users.Name != "users" || len(users.Columns) != 4 || users.Columns[1].Name != "name" {
		t.Errorf("users = %+v", users)
	}
}
