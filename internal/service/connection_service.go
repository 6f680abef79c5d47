package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"databridge/internal/dbclient"
	"databridge/internal/domain"
	"databridge/internal/secret"
)

// ─────────────────────────────────────────────────────────────
// Connection Service: saved connection profiles
// ─────────────────────────────────────────────────────────────

// ConnectorFactory opens a connector for a connection. dbclient.NewConnector
// is the production factory; tests substitute fakes.
type ConnectorFactory func(conn *domain.DatabaseConnection, password string, opts dbclient.Options) (dbclient.Connector, error)

// ConnectionInput is the service-layer DTO for creating/updating connections.
type ConnectionInput struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

// Validate checks the fields every driver needs.
func (in ConnectionInput) Validate() error {
	d := domain.DatabaseDriver(in.Driver)
	if !d.IsSQL() && !d.IsDocument() {
		return fmt.Errorf("unsupported driver %q", in.Driver)
	}
	if strings.TrimSpace(in.Host) == "" {
		return errors.New("host is required")
	}
	return nil
}

func (in ConnectionInput) apply(c *domain.DatabaseConnection) {
	c.Name = in.Name
	c.Driver = domain.DatabaseDriver(in.Driver)
	c.Host = in.Host
	c.Port = in.Port
	c.Database = in.Database
	c.Username = in.Username
	c.SSLMode = in.SSLMode
	if c.Name == "" {
		c.Name = c.Host
	}
}

// ConnectionService manages saved connections. Passwords live in the secret
// store under "db:<id>", never in SQLite.
type ConnectionService struct {
	store        domain.DatabaseConnectionStore
	secrets      secret.SecretStore
	opts         dbclient.Options
	newConnector ConnectorFactory
}

// NewConnectionService creates a ConnectionService.
func NewConnectionService(store domain.DatabaseConnectionStore, secrets secret.SecretStore, opts dbclient.Options) *ConnectionService {
	return &ConnectionService{
		store:        store,
		secrets:      secrets,
		opts:         opts,
		newConnector: dbclient.NewConnector,
	}
}

// SetConnectorFactory replaces dbclient.NewConnector.
func (s *ConnectionService) SetConnectorFactory(f ConnectorFactory) {
	s.newConnector = f
}

func secretKey(id string) string { return "db:" + id }

// ── Connection CRUD ────────────────────────────────────────

func (s *ConnectionService) ListConnections(ctx context.Context) ([]domain.DatabaseConnection, error) {
	return s.store.ListConnections(ctx)
}

func (s *ConnectionService) GetConnection(ctx context.Context, id string) (*domain.DatabaseConnection, error) {
	return s.store.GetConnection(ctx, id)
}

func (s *ConnectionService) CreateConnection(ctx context.Context, input ConnectionInput) (*domain.DatabaseConnection, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}
	conn := &domain.DatabaseConnection{}
	input.apply(conn)
	if err := s.store.CreateConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if input.Password != "" && s.secrets != nil {
		if err := s.secrets.Set(secretKey(conn.ID), []byte(input.Password)); err != nil {
			log.Printf("[CONN] could not store password for %s: %v", conn.ID, err)
		}
	}
	return conn, nil
}

// UpdateConnection overwrites a profile. An empty password keeps the stored one.
func (s *ConnectionService) UpdateConnection(ctx context.Context, id string, input ConnectionInput) (*domain.DatabaseConnection, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}
	conn, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(conn)
	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}
	if input.Password != "" && s.secrets != nil {
		if err := s.secrets.Set(secretKey(id), []byte(input.Password)); err != nil {
			log.Printf("[CONN] could not store password for %s: %v", id, err)
		}
	}
	return conn, nil
}

func (s *ConnectionService) DeleteConnection(ctx context.Context, id string) error {
	if err := s.store.DeleteConnection(ctx, id); err != nil {
		return err
	}
	if s.secrets != nil {
		_ = s.secrets.Delete(secretKey(id))
	}
	return nil
}

// ── Resolve + Open ─────────────────────────────────────────

// Resolve loads a profile together with its stored password.
func (s *ConnectionService) Resolve(ctx context.Context, id string) (*domain.DatabaseConnection, string, error) {
	conn, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return nil, "", err
	}
	var password string
	if s.secrets != nil {
		pw, err := s.secrets.Get(secretKey(id))
		if err != nil {
			return nil, "", fmt.Errorf("read password for %s: %w", id, err)
		}
		password = string(pw)
	}
	return conn, password, nil
}

// Connect opens a connector for an unsaved connection.
func (s *ConnectionService) Connect(conn *domain.DatabaseConnection, password string) (dbclient.Connector, error) {
	c, err := s.newConnector(conn, password, s.opts)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", conn.Driver, err)
	}
	return c, nil
}

// Open resolves a saved connection and opens a connector for it. The caller
// closes the connector.
func (s *ConnectionService) Open(ctx context.Context, id string) (dbclient.Connector, *domain.DatabaseConnection, error) {
	conn, password, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.Connect(conn, password)
	if err != nil {
		return nil, nil, err
	}
	return c, conn, nil
}

// ── Test + Introspect ──────────────────────────────────────

func (s *ConnectionService) TestConnection(ctx context.Context, id string) error {
	c, conn, err := s.Open(ctx, id)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.TestConnection(ctx); err != nil {
		return &domain.SourceIOError{Source: conn.Name, Err: err}
	}
	return nil
}

func (s *ConnectionService) Introspect(ctx context.Context, id string) (*dbclient.SchemaInfo, error) {
	c, conn, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	info, err := c.Introspect(ctx)
	if err != nil {
		return nil, &domain.SourceIOError{Source: conn.Name, Err: err}
	}
	return info, nil
}
