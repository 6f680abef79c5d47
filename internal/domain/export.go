package domain

import (
	"context"
	"time"
)

// Trigger types for export jobs.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"   // TriggerConfig is a standard cron expression
	TriggerFileWatch = "file_watch" // TriggerConfig is a directory of *.json files
)

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// ExportJob is a saved, repeatable conversion.
type ExportJob struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Mode          ConversionMode `json:"mode"`
	ConnectionID  string         `json:"connectionId"` // saved connection for the database modes
	Source        string         `json:"source"`       // table, collection or JSON file path
	TriggerType   string         `json:"triggerType"`
	TriggerConfig string         `json:"triggerConfig"`
	OutputDir     string         `json:"outputDir"` // overrides the configured output directory
	Enabled       bool           `json:"enabled"`
	LastRunAt     *time.Time     `json:"lastRunAt,omitempty"`
	LastStatus    string         `json:"lastStatus"`
	LastError     string         `json:"lastError"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ExportRun is the history entry of a single job execution.
type ExportRun struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	Filename   string    `json:"filename"`
	ArtifactID string    `json:"artifactId"`
	Bytes      int       `json:"bytes"`
	Error      string    `json:"error,omitempty"`
}

// Artifact is the metadata of a stored conversion result.
type Artifact struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	JobID     string         `json:"jobId,omitempty"`
	Mode      ConversionMode `json:"mode"`
	Filename  string         `json:"filename"`
	Size      int            `json:"size"` // uncompressed bytes
	CreatedAt time.Time      `json:"createdAt"`
}

// ArtifactStore persists conversion results.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, a *Artifact, content string) error
	GetArtifact(ctx context.Context, id string) (*Artifact, string, error)
	ListArtifacts(ctx context.Context, limit int) ([]Artifact, error)
}
