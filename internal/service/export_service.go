package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"databridge/internal/convert"
	"databridge/internal/dbclient"
	"databridge/internal/domain"
	"databridge/internal/metrics"
	"databridge/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Export Service: saved conversions run on demand, on a cron
// schedule or when a watched folder changes
// ─────────────────────────────────────────────────────────────

const (
	runTimeout     = 5 * time.Minute
	watchDebounce  = 500 * time.Millisecond
	runHistorySize = 50
)

// ExportService manages export jobs, scheduling, and folder watching.
type ExportService struct {
	store        *storage.ExportStore
	connections  *ConnectionService
	artifacts    domain.ArtifactStore
	emitter      EventEmitter
	metrics      *metrics.Metrics
	outputDir    string
	previewLimit int
	running      runGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	baseCtx     context.Context
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewExportService creates an ExportService. outputDir is used by jobs that
// do not name their own.
func NewExportService(
	store *storage.ExportStore,
	connections *ConnectionService,
	artifacts domain.ArtifactStore,
	emitter EventEmitter,
	m *metrics.Metrics,
	outputDir string,
	previewLimit int,
) *ExportService {
	if previewLimit <= 0 {
		previewLimit = dbclient.DefaultPreviewLimit
	}
	return &ExportService{
		store:        store,
		connections:  connections,
		artifacts:    artifacts,
		emitter:      emitter,
		metrics:      m,
		outputDir:    outputDir,
		previewLimit: previewLimit,
		baseCtx:      context.Background(),
	}
}

// ── Job CRUD ───────────────────────────────────────────────

type ExportJobInput struct {
	Name          string `json:"name"`
	Mode          string `json:"mode"`
	ConnectionID  string `json:"connectionId"`
	Source        string `json:"source"`
	TriggerType   string `json:"triggerType"`
	TriggerConfig string `json:"triggerConfig"`
	OutputDir     string `json:"outputDir"`
	Enabled       bool   `json:"enabled"`
}

// Validate checks that the job can run: the mode is known, database modes
// name a connection and a source, and triggers are well formed.
func (in *ExportJobInput) Validate() error {
	mode, err := domain.ParseConversionMode(in.Mode)
	if err != nil {
		return err
	}
	if in.TriggerType == "" {
		in.TriggerType = domain.TriggerManual
	}
	if mode.ReadsUpload() {
		if in.Source == "" && in.TriggerType != domain.TriggerFileWatch {
			return errors.New("json jobs need a source file path")
		}
	} else {
		if in.ConnectionID == "" {
			return errors.New("database jobs need a connection")
		}
		if in.Source == "" {
			return errors.New("database jobs need a table or collection")
		}
	}

	switch in.TriggerType {
	case domain.TriggerManual:
	case domain.TriggerSchedule:
		if _, err := cron.ParseStandard(in.TriggerConfig); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", in.TriggerConfig, err)
		}
	case domain.TriggerFileWatch:
		if !mode.ReadsUpload() {
			return fmt.Errorf("file_watch trigger needs a json mode, got %s", mode)
		}
		if in.TriggerConfig == "" {
			return errors.New("file_watch trigger needs a directory")
		}
		if in.OutputDir != "" && sameDir(in.OutputDir, in.TriggerConfig) {
			return errors.New("file_watch output directory must differ from the watched directory")
		}
	default:
		return fmt.Errorf("unknown trigger type %q", in.TriggerType)
	}
	return nil
}

// sameDir reports whether a and b name the same directory after cleaning.
func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// validate checks the input and, for watch jobs writing to the default
// output directory, that the default is not the watched folder.
func (s *ExportService) validate(input *ExportJobInput) error {
	if err := input.Validate(); err != nil {
		return invalid(err)
	}
	if input.TriggerType == domain.TriggerFileWatch && input.OutputDir == "" &&
		s.outputDir != "" && sameDir(s.outputDir, input.TriggerConfig) {
		return invalid(errors.New("file_watch directory is the default output directory; set output_dir elsewhere"))
	}
	return nil
}

func (in ExportJobInput) apply(job *domain.ExportJob) {
	job.Name = in.Name
	job.Mode = domain.ConversionMode(in.Mode)
	job.ConnectionID = in.ConnectionID
	job.Source = in.Source
	job.TriggerType = in.TriggerType
	job.TriggerConfig = in.TriggerConfig
	job.OutputDir = in.OutputDir
	job.Enabled = in.Enabled
}

func (s *ExportService) CreateJob(ctx context.Context, input ExportJobInput) (*domain.ExportJob, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	job := &domain.ExportJob{}
	input.apply(job)
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ExportService) GetJob(ctx context.Context, id string) (*domain.ExportJob, error) {
	return s.store.GetJob(ctx, id)
}

func (s *ExportService) ListJobs(ctx context.Context) ([]domain.ExportJob, error) {
	return s.store.ListJobs(ctx)
}

func (s *ExportService) UpdateJob(ctx context.Context, id string, input ExportJobInput) (*domain.ExportJob, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(job)
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ExportService) DeleteJob(ctx context.Context, id string) error {
	err := s.store.DeleteJob(ctx, id)
	if err == nil {
		s.RestartWatchers(ctx)
	}
	return err
}

// ListRuns returns the most recent runs of a job.
func (s *ExportService) ListRuns(ctx context.Context, jobID string) ([]domain.ExportRun, error) {
	return s.store.ListRuns(ctx, jobID, runHistorySize)
}

// ── Run ────────────────────────────────────────────────────

// RunJob executes a job synchronously.
func (s *ExportService) RunJob(ctx context.Context, id string) (*domain.ExportRun, error) {
	return s.runJob(ctx, id, domain.TriggerManual, "")
}

// runJob executes a job. path, when set, replaces the job's source file.
func (s *ExportService) runJob(ctx context.Context, id, trigger, path string) (*domain.ExportRun, error) {
	if !s.running.TryLock(id) {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobRunning)
	}
	defer s.running.Unlock(id)

	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateJobStatus(ctx, id, domain.RunStatusRunning, ""); err != nil {
		log.Printf("[EXPORT] could not mark job %s running: %v", id, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	run := &domain.ExportRun{JobID: id, StartedAt: time.Now(), Source: job.Source}
	if path != "" {
		run.Source = path
	}
	runErr := s.execute(runCtx, job, path, run)
	run.FinishedAt = time.Now()

	run.Status = domain.RunStatusSuccess
	if runErr != nil {
		run.Status = domain.RunStatusError
		run.Error = runErr.Error()
		log.Printf("[EXPORT] job %s (%s) failed: %v", job.Name, id, runErr)
	} else {
		log.Printf("[EXPORT] job %s (%s) wrote %s (%d bytes)", job.Name, id, run.Filename, run.Bytes)
	}
	s.metrics.ObserveExportRun(trigger, run.FinishedAt.Sub(run.StartedAt), runErr)

	// Bookkeeping uses the caller's context so a timed-out run is still logged.
	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Printf("[EXPORT] could not log run of job %s: %v", id, err)
	}
	if err := s.store.UpdateJobStatus(ctx, id, run.Status, run.Error); err != nil {
		log.Printf("[EXPORT] could not update status of job %s: %v", id, err)
	}

	if runErr == nil {
		emit(ctx, s.emitter, "export:job-completed", map[string]string{
			"jobId":    id,
			"filename": run.Filename,
		})
	}
	return run, runErr
}

func (s *ExportService) execute(ctx context.Context, job *domain.ExportJob, path string, run *domain.ExportRun) error {
	in, err := s.buildInput(ctx, job, path)
	if err != nil {
		return err
	}
	res, err := convert.Convert(job.Mode, in)
	if err != nil {
		s.metrics.ObserveConversion(string(job.Mode), 0, err)
		return err
	}
	s.metrics.ObserveConversion(string(job.Mode), len(res.Content), nil)

	dir := job.OutputDir
	if dir == "" {
		dir = s.outputDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, res.Filename), []byte(res.Content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", res.Filename, err)
	}
	run.Filename = res.Filename
	run.Bytes = len(res.Content)

	if s.artifacts != nil {
		a := &domain.Artifact{JobID: job.ID, Mode: job.Mode, Filename: res.Filename}
		if err := s.artifacts.SaveArtifact(ctx, a, res.Content); err != nil {
			log.Printf("[EXPORT] could not keep artifact of job %s: %v", job.ID, err)
		} else {
			run.ArtifactID = a.ID
		}
	}
	return nil
}

// buildInput reads the job's source: a preview through the saved connection
// for the database modes, or the JSON file for the upload modes.
func (s *ExportService) buildInput(ctx context.Context, job *domain.ExportJob, path string) (convert.Input, error) {
	if job.Mode.ReadsUpload() {
		if path == "" {
			path = job.Source
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return convert.Input{}, &domain.SourceIOError{Source: path, Err: err}
		}
		return convert.Input{Upload: &convert.Upload{Filename: filepath.Base(path), Data: data}}, nil
	}

	if s.connections == nil {
		return convert.Input{}, fmt.Errorf("connection %s: %w", job.ConnectionID, domain.ErrNotFound)
	}
	c, conn, err := s.connections.Open(ctx, job.ConnectionID)
	if err != nil {
		return convert.Input{}, err
	}
	defer c.Close()

	switch {
	case job.Mode == domain.ModeSQLToNoSQL && !conn.Driver.IsSQL():
		return convert.Input{}, fmt.Errorf("%s needs a SQL connection, %s is %s", job.Mode, conn.Name, conn.Driver)
	case job.Mode == domain.ModeNoSQLToSQL && !conn.Driver.IsDocument():
		return convert.Input{}, fmt.Errorf("%s needs a document connection, %s is %s", job.Mode, conn.Name, conn.Driver)
	}

	set, err := c.Preview(ctx, job.Source, s.previewLimit)
	s.metrics.ObservePreview(kind(conn.Driver.IsDocument()), err)
	if err != nil {
		return convert.Input{}, &domain.SourceIOError{Source: job.Source, Err: err}
	}
	return convert.Input{Preview: set, Source: job.Source}, nil
}

// ── Watchers (cron + file_watch) ──────────────────────────

// Start remembers ctx as the parent of triggered runs and builds the watchers.
func (s *ExportService) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	s.RestartWatchers(ctx)
}

// RestartWatchers tears down the current watcher/cron and rebuilds them from
// the enabled jobs.
func (s *ExportService) RestartWatchers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchersLocked()

	jobs, err := s.store.ListTriggeredJobs(ctx)
	if err != nil {
		log.Printf("[EXPORT] watcher: failed to list jobs: %v", err)
		return
	}
	runCtx := s.baseCtx

	// ── Cron jobs ──
	c := cron.New()
	scheduled := 0
	for _, j := range jobs {
		if j.TriggerType != domain.TriggerSchedule || j.TriggerConfig == "" {
			continue
		}
		jid := j.ID
		_, err := c.AddFunc(j.TriggerConfig, func() {
			log.Printf("[EXPORT] cron: running job %s", jid)
			if _, err := s.runJob(runCtx, jid, domain.TriggerSchedule, ""); err != nil {
				log.Printf("[EXPORT] cron: job %s failed: %v", jid, err)
			}
		})
		if err != nil {
			log.Printf("[EXPORT] cron: invalid expression %q for job %s: %v", j.TriggerConfig, jid, err)
			continue
		}
		scheduled++
	}
	if scheduled > 0 {
		c.Start()
		s.cronSched = c
		log.Printf("[EXPORT] cron: scheduled %d job(s)", scheduled)
	}

	// ── Folder watchers ──
	dirToJobs := make(map[string][]string)
	for _, j := range jobs {
		if j.TriggerType != domain.TriggerFileWatch || j.TriggerConfig == "" {
			continue
		}
		absDir, err := filepath.Abs(j.TriggerConfig)
		if err != nil {
			log.Printf("[EXPORT] watcher: bad path %q: %v", j.TriggerConfig, err)
			continue
		}
		dirToJobs[absDir] = append(dirToJobs[absDir], j.ID)
	}
	if len(dirToJobs) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[EXPORT] watcher: failed to create watcher: %v", err)
		return
	}
	for dir := range dirToJobs {
		if err := watcher.Add(dir); err != nil {
			log.Printf("[EXPORT] watcher: failed to watch dir %q: %v", dir, err)
			delete(dirToJobs, dir)
		}
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(runCtx)
	s.watchCancel = cancel
	go s.watchLoop(watchCtx, watcher, dirToJobs)

	log.Printf("[EXPORT] watcher: watching %d folder(s)", len(dirToJobs))
}

func (s *ExportService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, dirToJobs map[string][]string) {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			for _, jobID := range dirToJobs[filepath.Dir(absPath)] {
				key := jobID + "|" + absPath
				if t, exists := timers[key]; exists {
					t.Stop()
				}
				jid, file := jobID, absPath
				timers[key] = time.AfterFunc(watchDebounce, func() {
					log.Printf("[EXPORT] watcher: file changed %q, running job %s", file, jid)
					if _, err := s.runJob(ctx, jid, domain.TriggerFileWatch, file); err != nil {
						log.Printf("[EXPORT] watcher: run failed for job %s: %v", jid, err)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[EXPORT] watcher: error: %v", err)
		}
	}
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *ExportService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchersLocked()
}

func (s *ExportService) stopWatchersLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
