package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"databridge/internal/domain"

	"github.com/google/uuid"
)

// DBConnectionStore manages saved connection records in SQLite.
type DBConnectionStore struct {
	db *DB
}

// NewDBConnectionStore creates a new DBConnectionStore.
func NewDBConnectionStore(db *DB) *DBConnectionStore {
	return &DBConnectionStore{db: db}
}

const connectionColumns = `id, name, driver, host, port, database_name, username, ssl_mode, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.DatabaseConnection, error) {
	c := &domain.DatabaseConnection{}
	err := row.Scan(&c.ID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateConnection inserts c, assigning an ID when it has none.
func (s *DBConnectionStore) CreateConnection(ctx context.Context, c *domain.DatabaseConnection) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO db_connections (`+connectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

func (s *DBConnectionStore) GetConnection(ctx context.Context, id string) (*domain.DatabaseConnection, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM db_connections WHERE id = ?`, id,
	)
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("database connection %s: %w", id, domain.ErrNotFound)
	}
	return c, err
}

func (s *DBConnectionStore) ListConnections(ctx context.Context) ([]domain.DatabaseConnection, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM db_connections ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conns := []domain.DatabaseConnection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, rows.Err()
}

func (s *DBConnectionStore) UpdateConnection(ctx context.Context, c *domain.DatabaseConnection) error {
	c.UpdatedAt = time.Now()
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE db_connections SET name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, "database connection", c.ID)
}

func (s *DBConnectionStore) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM db_connections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "database connection", id)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
