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

// ExportStore implements persistence for export jobs and their run history.
type ExportStore struct {
	db *DB
}

// NewExportStore creates a new ExportStore.
func NewExportStore(db *DB) *ExportStore {
	return &ExportStore{db: db}
}

// ── Job CRUD ───────────────────────────────────────────────

const jobColumns = `id, name, mode, connection_id, source, trigger_type, trigger_config, output_dir,
	 enabled, last_run_at, last_status, last_error, created_at, updated_at`

func scanJob(row rowScanner) (*domain.ExportJob, error) {
	job := &domain.ExportJob{}
	var lastRun sql.NullTime
	err := row.Scan(
		&job.ID, &job.Name, &job.Mode, &job.ConnectionID, &job.Source,
		&job.TriggerType, &job.TriggerConfig, &job.OutputDir, &job.Enabled,
		&lastRun, &job.LastStatus, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		t := lastRun.Time
		job.LastRunAt = &t
	}
	return job, nil
}

func (s *ExportStore) CreateJob(ctx context.Context, job *domain.ExportJob) error {
	now := time.Now()
	job.ID = uuid.New().String()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO export_jobs (id, name, mode, connection_id, source, trigger_type, trigger_config,
		 output_dir, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.Mode, job.ConnectionID, job.Source,
		job.TriggerType, job.TriggerConfig, job.OutputDir, job.Enabled,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

func (s *ExportStore) GetJob(ctx context.Context, id string) (*domain.ExportJob, error) {
	job, err := scanJob(s.db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export job %s: %w", id, domain.ErrNotFound)
	}
	return job, err
}

func (s *ExportStore) UpdateJob(ctx context.Context, job *domain.ExportJob) error {
	job.UpdatedAt = time.Now()
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE export_jobs SET name=?, mode=?, connection_id=?, source=?, trigger_type=?,
		 trigger_config=?, output_dir=?, enabled=?, updated_at=? WHERE id=?`,
		job.Name, job.Mode, job.ConnectionID, job.Source, job.TriggerType,
		job.TriggerConfig, job.OutputDir, job.Enabled, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, "export job", job.ID)
}

func (s *ExportStore) UpdateJobStatus(ctx context.Context, id, status, errMsg string) error {
	now := time.Now()
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE export_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		now, status, errMsg, now, id,
	)
	return err
}

func (s *ExportStore) DeleteJob(ctx context.Context, id string) error {
	// Delete run history first.
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM export_runs WHERE job_id = ?`, id); err != nil {
		return err
	}
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM export_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "export job", id)
}

func (s *ExportStore) ListJobs(ctx context.Context) ([]domain.ExportJob, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM export_jobs ORDER BY created_at ASC`)
}

// ListTriggeredJobs returns enabled jobs with a schedule or file_watch trigger.
func (s *ExportStore) ListTriggeredJobs(ctx context.Context) ([]domain.ExportJob, error) {
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM export_jobs
		 WHERE enabled = 1 AND trigger_type IN (?, ?)
		 ORDER BY created_at ASC`,
		domain.TriggerSchedule, domain.TriggerFileWatch,
	)
}

func (s *ExportStore) queryJobs(ctx context.Context, query string, args ...any) ([]domain.ExportJob, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []domain.ExportJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ── Run history ────────────────────────────────────────────

func (s *ExportStore) CreateRun(ctx context.Context, run *domain.ExportRun) error {
	run.ID = uuid.New().String()
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO export_runs (id, job_id, started_at, finished_at, status, source, filename, artifact_id, bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobID, run.StartedAt, run.FinishedAt, run.Status,
		run.Source, run.Filename, run.ArtifactID, run.Bytes, run.Error,
	)
	return err
}

func (s *ExportStore) ListRuns(ctx context.Context, jobID string, limit int) ([]domain.ExportRun, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, job_id, started_at, finished_at, status, source, filename, artifact_id, bytes, error
		 FROM export_runs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []domain.ExportRun{}
	for rows.Next() {
		var r domain.ExportRun
		if err := rows.Scan(&r.ID, &r.JobID, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.Source, &r.Filename, &r.ArtifactID, &r.Bytes, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
