package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"databridge/internal/domain"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// ArtifactStore keeps conversion results, lz4-compressed, so downloads and
// job outputs survive a restart.
type ArtifactStore struct {
	db *DB
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(db *DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

var _ domain.ArtifactStore = (*ArtifactStore)(nil)

func (s *ArtifactStore) SaveArtifact(ctx context.Context, a *domain.Artifact, content string) error {
	packed, err := compress([]byte(content))
	if err != nil {
		return fmt.Errorf("compress artifact: %w", err)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Size = len(content)
	a.CreatedAt = time.Now().UTC()

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO artifacts (id, session_id, job_id, mode, filename, size, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.JobID, a.Mode, a.Filename, a.Size, packed, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (s *ArtifactStore) GetArtifact(ctx context.Context, id string) (*domain.Artifact, string, error) {
	a := &domain.Artifact{}
	var packed []byte
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, job_id, mode, filename, size, content, created_at
		 FROM artifacts WHERE id = ?`, id,
	).Scan(&a.ID, &a.SessionID, &a.JobID, &a.Mode, &a.Filename, &a.Size, &packed, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("artifact %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, "", err
	}

	content, err := decompress(packed)
	if err != nil {
		return nil, "", fmt.Errorf("decompress artifact %s: %w", id, err)
	}
	return a, string(content), nil
}

// ListArtifacts returns the newest artifacts first, without their content.
func (s *ArtifactStore) ListArtifacts(ctx context.Context, limit int) ([]domain.Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, session_id, job_id, mode, filename, size, created_at
		 FROM artifacts ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Artifact{}
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.ID, &a.SessionID, &a.JobID, &a.Mode, &a.Filename, &a.Size, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PruneArtifacts deletes artifacts older than cutoff and returns how many
// were removed.
func (s *ArtifactStore) PruneArtifacts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM artifacts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
