package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"databridge/internal/domain"
	"databridge/internal/metrics"
	"databridge/internal/service"
	"databridge/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// ExportService tests
// ─────────────────────────────────────────────────────────────

type exportFixture struct {
	svc     *service.ExportService
	conns   *service.ConnectionService
	emitter *service.MockEmitter
	fc      *fakeConnector
	outDir  string
}

func newExportService(t *testing.T) *exportFixture {
	t.Helper()
	db := newTestDB(t)
	fc := &fakeConnector{
		sources: []string{"users"},
		rows: map[string]domain.SampleSet{
			"users": {rec("id", int64(1), "active", true)},
		},
	}
	conns := newConnectionService(t, db, fc)
	em := &service.MockEmitter{}
	out := filepath.Join(t.TempDir(), "out")
	svc := service.NewExportService(storage.NewExportStore(db), conns, storage.NewArtifactStore(db), em, metrics.New(), out, 20)
	t.Cleanup(svc.Stop)
	return &exportFixture{svc: svc, conns: conns, emitter: em, fc: fc, outDir: out}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExportService_NewExportService(t *testing.T) {
	svc := service.NewExportService(nil, nil, nil, &service.MockEmitter{}, nil, "", 0)
	if svc == nil {
		t.Fatal("expected non-nil ExportService")
	}
}

func TestExportService_WaitRunning_Immediate(t *testing.T) {
	svc := service.NewExportService(nil, nil, nil, &service.MockEmitter{}, nil, "", 0)

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		svc.WaitRunning(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("WaitRunning hung with no running jobs")
	}
}

func TestExportService_Stop_Idempotent(t *testing.T) {
	svc := service.NewExportService(nil, nil, nil, &service.MockEmitter{}, nil, "", 0)
	svc.Stop()
	svc.Stop()
}

func TestExportJobInput_Validate(t *testing.T) {
	cases := []struct {
		name  string
		input service.ExportJobInput
		ok    bool
	}{
		{"json manual", service.ExportJobInput{Mode: "json_to_sql", Source: "/tmp/a.json"}, true},
		{"json without source", service.ExportJobInput{Mode: "json_to_sql"}, false},
		{"db without connection", service.ExportJobInput{Mode: "sql_to_nosql", Source: "users"}, false},
		{"db without source", service.ExportJobInput{Mode: "nosql_to_sql", ConnectionID: "c1"}, false},
		{"schedule", service.ExportJobInput{Mode: "sql_to_nosql", ConnectionID: "c1", Source: "users",
			TriggerType: "schedule", TriggerConfig: "*/5 * * * *"}, true},
		{"bad cron", service.ExportJobInput{Mode: "sql_to_nosql", ConnectionID: "c1", Source: "users",
			TriggerType: "schedule", TriggerConfig: "every minute"}, false},
		{"watch json", service.ExportJobInput{Mode: "json_to_nosql", TriggerType: "file_watch", TriggerConfig: "/tmp/in"}, true},
		{"watch db mode", service.ExportJobInput{Mode: "sql_to_nosql", ConnectionID: "c1", Source: "users",
			TriggerType: "file_watch", TriggerConfig: "/tmp/in"}, false},
		{"watch without dir", service.ExportJobInput{Mode: "json_to_sql", TriggerType: "file_watch"}, false},
		{"watch writes into watched dir", service.ExportJobInput{Mode: "json_to_nosql", TriggerType: "file_watch",
			TriggerConfig: "/tmp/in", OutputDir: "/tmp/in/"}, false},
		{"watch writes elsewhere", service.ExportJobInput{Mode: "json_to_nosql", TriggerType: "file_watch",
			TriggerConfig: "/tmp/in", OutputDir: "/tmp/out"}, true},
		{"unknown trigger", service.ExportJobInput{Mode: "json_to_sql", Source: "a.json", TriggerType: "webhook"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.Validate()
			if (err == nil) != tc.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}

	bad := service.ExportJobInput{Mode: "xml_to_sql", Source: "a"}
	if err := bad.Validate(); !errors.Is(err, domain.ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestExportService_RejectsWatchOnDefaultOutputDir(t *testing.T) {
	f := newExportService(t)
	ctx := context.Background()

	_, err := f.svc.CreateJob(ctx, service.ExportJobInput{
		Name: "loop", Mode: "json_to_nosql", TriggerType: "file_watch", TriggerConfig: f.outDir,
	})
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	job, err := f.svc.CreateJob(ctx, service.ExportJobInput{
		Name: "drop", Mode: "json_to_nosql", TriggerType: "file_watch", TriggerConfig: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.UpdateJob(ctx, job.ID, service.ExportJobInput{
		Name: "drop", Mode: "json_to_nosql", TriggerType: "file_watch", TriggerConfig: f.outDir,
	})
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("update: expected ErrInvalidInput, got %v", err)
	}
}

func TestExportService_RunJSONJob(t *testing.T) {
	f := newExportService(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "people.json")
	writeFile(t, src, `[{"name":"Ann","age":41}]`)

	job, err := f.svc.CreateJob(ctx, service.ExportJobInput{Name: "people", Mode: "json_to_sql", Source: src, Enabled: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.TriggerType != domain.TriggerManual {
		t.Errorf("trigger should default to manual, got %q", job.TriggerType)
	}

	run, err := f.svc.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != domain.RunStatusSuccess || run.Filename != "people.sql" || run.ArtifactID == "" {
		t.Errorf("run = %+v", run)
	}

	out, err := os.ReadFile(filepath.Join(f.outDir, "people.sql"))
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if !strings.HasPrefix(string(out), "CREATE TABLE `people` (\n  `name` VARCHAR(255),\n  `age` INT\n);") {
		t.Errorf("output = %s", out)
	}
	if run.Bytes != len(out) {
		t.Errorf("bytes = %d, file has %d", run.Bytes, len(out))
	}

	runs, err := f.svc.ListRuns(ctx, job.ID)
	if err != nil || len(runs) != 1 || runs[0].Status != domain.RunStatusSuccess {
		t.Errorf("runs = %+v, %v", runs, err)
	}
	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.LastStatus != domain.RunStatusSuccess || got.LastRunAt == nil {
		t.Errorf("job after run = %+v", got)
	}
	if f.emitter.Count("export:job-completed") != 1 {
		t.Errorf("events = %+v", f.emitter.Events)
	}
}

func TestExportService_RunDatabaseJob(t *testing.T) {
	f := newExportService(t)
	ctx := context.Background()

	conn, err := f.conns.CreateConnection(ctx, service.ConnectionInput{Driver: "sqlite", Host: "/data/app.db"})
	if err != nil {
		t.Fatal(err)
	}
	jobOut := filepath.Join(t.TempDir(), "custom")
	job, err := f.svc.CreateJob(ctx, service.ExportJobInput{
		Name: "users", Mode: "sql_to_nosql", ConnectionID: conn.ID, Source: "users", OutputDir: jobOut,
	})
	if err != nil {
		t.Fatal(err)
	}

	run, err := f.svc.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out, err := os.ReadFile(filepath.Join(jobOut, "users.json"))
	if err != nil {
		t.Fatalf("job output dir not used: %v", err)
	}
	if string(out) != "[\n  {\n    \"id\": 1,\n    \"active\": true\n  }\n]" {
		t.Errorf("output = %s", out)
	}
	if run.Source != "users" {
		t.Errorf("run source = %q", run.Source)
	}
}

func TestExportService_ModeDriverMismatch(t *testing.T) {
	f := newExportService(t)
	ctx := context.Background()

	conn, _ := f.conns.CreateConnection(ctx, service.ConnectionInput{Driver: "mysql", Host: "localhost"})
	job, err := f.svc.CreateJob(ctx, service.ExportJobInput{Mode: "nosql_to_sql", ConnectionID: conn.ID, Source: "users"})
	if err != nil {
		t.Fatal(err)
	}

	run, err := f.svc.RunJob(ctx, job.ID)
	if err == nil {
		t.Fatal("expected nosql_to_sql against a mysql connection to fail")
	}
	if run.Status != domain.RunStatusError || run.Error == "" {
		t.Errorf("run = %+v", run)
	}
	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.LastStatus != domain.RunStatusError || got.LastError == "" {
		t.Errorf("job after failed run = %+v", got)
	}
	if f.emitter.Count("export:job-completed") != 0 {
		t.Error("failed run must not emit export:job-completed")
	}
}

func TestExportService_MissingSourceFile(t *testing.T) {
	f := newExportService(t)
	ctx := context.Background()

	job, _ := f.svc.CreateJob(ctx, service.ExportJobInput{Mode: "json_to_nosql", Source: filepath.Join(t.TempDir(), "gone.json")})
	_, err := f.svc.RunJob(ctx, job.ID)
	var ioErr *domain.SourceIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected SourceIOError, got %v", err)
	}
	runs, _ := f.svc.ListRuns(ctx, job.ID)
	if len(runs) != 1 || runs[0].Status != domain.RunStatusError {
		t.Errorf("failed run not logged: %+v", runs)
	}
}

func TestExportService_DeleteJob(t *testing.T) {
	f := newExportService(t)
	ctx := context.Background()

	job, _ := f.svc.CreateJob(ctx, service.ExportJobInput{Mode: "json_to_sql", Source: "a.json"})
	if err := f.svc.DeleteJob(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RunJob(ctx, job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportService_FileWatchTrigger(t *testing.T) {
	f := newExportService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := t.TempDir()
	job, err := f.svc.CreateJob(ctx, service.ExportJobInput{
		Name: "inbox", Mode: "json_to_nosql", TriggerType: "file_watch", TriggerConfig: inbox, Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.svc.Start(ctx)

	writeFile(t, filepath.Join(inbox, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(inbox, "drop.json"), `{"a":1}`)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runs, err := f.svc.ListRuns(ctx, job.ID)
		if err == nil && len(runs) > 0 {
			if runs[0].Filename != "drop.json" || runs[0].Status != domain.RunStatusSuccess {
				t.Fatalf("run = %+v", runs[0])
			}
			if _, err := os.Stat(filepath.Join(f.outDir, "drop.json")); err != nil {
				t.Fatalf("output missing: %v", err)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("watched folder change did not trigger the job")
}
