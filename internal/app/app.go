// Package app wires configuration, storage, secrets and services into the
// HTTP and MCP front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"databridge/internal/config"
	"databridge/internal/dbclient"
	"databridge/internal/httpapi"
	mcpserver "databridge/internal/mcp"
	"databridge/internal/metrics"
	"databridge/internal/secret"
	"databridge/internal/service"
	"databridge/internal/session"
	"databridge/internal/storage"
	"databridge/internal/uploads"
)

// App holds the long-lived components of a running DataBridge process.
type App struct {
	Config *config.Config

	db        *storage.DB
	artifacts *storage.ArtifactStore
	metrics   *metrics.Metrics

	Sessions    *session.Manager
	Connections *service.ConnectionService
	Bridge      *service.BridgeService
	Exports     *service.ExportService
}

// New opens the local database and builds every service from cfg.
func New(cfg *config.Config) (*App, error) {
	for _, dir := range []string{cfg.DataDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	secrets, err := secret.Open(cfg.SecretBackend)
	if err != nil {
		db.Close()
		return nil, err
	}

	uploadStore, err := uploads.NewStore(cfg.UploadDir, cfg.MaxUploadBytes())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open upload store: %w", err)
	}

	a := &App{
		Config:    cfg,
		db:        db,
		artifacts: storage.NewArtifactStore(db),
		metrics:   metrics.New(),
		Sessions:  session.NewManager(cfg.SessionTTLDuration()),
	}
	emitter := service.LogEmitter{}

	a.Connections = service.NewConnectionService(
		storage.NewDBConnectionStore(db),
		secrets,
		dbclient.Options{ConnectTimeout: cfg.ConnectTimeoutDuration()},
	)
	a.Bridge = service.NewBridgeService(
		a.Sessions,
		uploadStore,
		a.artifacts,
		a.Connections,
		emitter,
		a.metrics,
		service.BridgeOptions{
			PreviewLimit:   cfg.PreviewLimit,
			ConnectTimeout: cfg.ConnectTimeoutDuration(),
		},
	)
	a.Exports = service.NewExportService(
		storage.NewExportStore(db),
		a.Connections,
		a.artifacts,
		emitter,
		a.metrics,
		cfg.OutputDir,
		cfg.PreviewLimit,
	)
	return a, nil
}

// HTTP returns the REST API server.
func (a *App) HTTP() *httpapi.Server {
	return httpapi.New(a.Bridge, a.Connections, a.Exports, a.metrics, httpapi.Options{
		// Multipart framing on top of the largest accepted file.
		MaxBodyBytes: a.Config.MaxUploadBytes() + 1<<20,
	})
}

// MCP returns the agent tool server.
func (a *App) MCP(ctx context.Context) *mcpserver.Server {
	return mcpserver.New(ctx, mcpserver.Deps{
		Connections:  a.Connections,
		Exports:      a.Exports,
		Artifacts:    a.artifacts,
		Metrics:      a.metrics,
		PreviewLimit: a.Config.PreviewLimit,
	})
}

// Sweep expires idle sessions and prunes artifacts older than artifact_ttl.
func (a *App) Sweep(ctx context.Context) {
	if n := a.Bridge.SweepSessions(); n > 0 {
		log.Printf("[SESSION] expired %d idle sessions", n)
	}
	ttl := a.Config.ArtifactTTLDuration()
	if ttl <= 0 {
		return
	}
	n, err := a.artifacts.PruneArtifacts(ctx, time.Now().Add(-ttl))
	if err != nil {
		log.Printf("[ARTIFACT] prune failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[ARTIFACT] pruned %d artifacts older than %s", n, ttl)
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}

// Close stops the export triggers and closes the database.
func (a *App) Close() error {
	var errs []error
	if a.Exports != nil {
		a.Exports.Stop()
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
