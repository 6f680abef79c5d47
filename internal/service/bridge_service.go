package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"databridge/internal/convert"
	"databridge/internal/dbclient"
	"databridge/internal/domain"
	"databridge/internal/metrics"
	"databridge/internal/session"
	"databridge/internal/uploads"
)

// ─────────────────────────────────────────────────────────────
// Bridge Service: interactive conversion sessions
// ─────────────────────────────────────────────────────────────

// BridgeOptions tune previews and connects.
type BridgeOptions struct {
	PreviewLimit   int
	ConnectTimeout time.Duration
}

// BridgeService drives a session through connect, preview, upload, convert
// and download. Failures are reported to the caller and queued as session
// notifications; none of them end the session.
type BridgeService struct {
	sessions    *session.Manager
	uploads     *uploads.Store
	artifacts   domain.ArtifactStore
	connections *ConnectionService
	emitter     EventEmitter
	metrics     *metrics.Metrics
	opts        BridgeOptions
}

// NewBridgeService creates a BridgeService. artifacts and metrics may be nil.
// Expired sessions have their uploads removed.
func NewBridgeService(
	sessions *session.Manager,
	uploadStore *uploads.Store,
	artifacts domain.ArtifactStore,
	connections *ConnectionService,
	emitter EventEmitter,
	m *metrics.Metrics,
	opts BridgeOptions,
) *BridgeService {
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = dbclient.DefaultPreviewLimit
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = dbclient.DefaultConnectTimeout
	}
	s := &BridgeService{
		sessions:    sessions,
		uploads:     uploadStore,
		artifacts:   artifacts,
		connections: connections,
		emitter:     emitter,
		metrics:     m,
		opts:        opts,
	}
	sessions.OnExpire(func(id string) {
		if uploadStore == nil {
			return
		}
		if err := uploadStore.RemoveSession(id); err != nil {
			log.Printf("[SESSION] could not remove uploads of %s: %v", id, err)
		}
	})
	return s
}

// ── Sessions ───────────────────────────────────────────────

func (s *BridgeService) CreateSession(ctx context.Context) session.View {
	sess := s.sessions.Create()
	emit(ctx, s.emitter, "session:created", sess.ID)
	return sess.Snapshot()
}

func (s *BridgeService) GetSession(id string) (session.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.Snapshot(), nil
}

// CloseSession drops the session and its uploads.
func (s *BridgeService) CloseSession(id string) error {
	if _, err := s.sessions.Get(id); err != nil {
		return err
	}
	s.sessions.Delete(id)
	return nil
}

// SetMode switches the conversion mode. Status, sources, preview and
// download are reset.
func (s *BridgeService) SetMode(id, mode string) (session.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.View{}, err
	}
	m, err := domain.ParseConversionMode(mode)
	if err != nil {
		return session.View{}, err
	}
	sess.SetMode(m)
	return sess.Snapshot(), nil
}

// Notifications drains the queued toasts of a session.
func (s *BridgeService) Notifications(id string) ([]session.Notification, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.DrainNotifications(), nil
}

// ── Connect ────────────────────────────────────────────────

// ConnectSQL tests a relational connection and lists its tables.
func (s *BridgeService) ConnectSQL(ctx context.Context, id string, conn domain.DatabaseConnection, password string) ([]string, error) {
	if conn.Driver == "" {
		conn.Driver = domain.DatabaseDriverMySQL
	}
	if !conn.Driver.IsSQL() {
		return nil, fmt.Errorf("%w: driver %s is not a SQL driver", ErrInvalidInput, conn.Driver)
	}
	return s.connect(ctx, id, false, session.Source{Conn: conn, Password: password})
}

// ConnectDocument tests a document store connection and lists its collections.
func (s *BridgeService) ConnectDocument(ctx context.Context, id string, conn domain.DatabaseConnection, password string) ([]string, error) {
	if conn.Driver == "" {
		conn.Driver = domain.DatabaseDriverMongoDB
	}
	if !conn.Driver.IsDocument() {
		return nil, fmt.Errorf("%w: driver %s is not a document driver", ErrInvalidInput, conn.Driver)
	}
	return s.connect(ctx, id, true, session.Source{Conn: conn, Password: password})
}

// ConnectSaved connects the session with a saved profile. The profile's
// driver decides whether it becomes the SQL or the document source.
func (s *BridgeService) ConnectSaved(ctx context.Context, id, connectionID string) ([]string, error) {
	if s.connections == nil {
		return nil, fmt.Errorf("saved connections: %w", domain.ErrNotFound)
	}
	conn, password, err := s.connections.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Driver.IsDocument() {
		return s.ConnectDocument(ctx, id, *conn, password)
	}
	return s.ConnectSQL(ctx, id, *conn, password)
}

func (s *BridgeService) connect(ctx context.Context, id string, document bool, src session.Source) ([]string, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	sess.BeginConnect(document, src)

	names, err := s.listSources(ctx, src)
	sess.FinishConnect(document, names, err)

	label := "SQL"
	if document {
		label = "MongoDB"
	}
	if err != nil {
		log.Printf("[%s] connection error: %v", tag(document), err)
		if document {
			sess.Notify(session.LevelError, "Mongo Error: "+err.Error())
		} else {
			sess.Notify(session.LevelError, "SQL Error: "+err.Error())
		}
		return nil, &domain.SourceIOError{Source: string(src.Conn.Driver), Err: err}
	}
	sess.Notify(session.LevelSuccess, label+" Connection Successful!")
	return names, nil
}

func (s *BridgeService) listSources(ctx context.Context, src session.Source) ([]string, error) {
	c, err := s.open(src)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	if err := c.TestConnection(ctx); err != nil {
		return nil, err
	}
	return c.ListSources(ctx)
}

// ── Preview ────────────────────────────────────────────────

// SelectTable records the table and captures its preview. An empty table
// only clears the previous selection.
func (s *BridgeService) SelectTable(ctx context.Context, id, table string) (domain.SampleSet, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	token := sess.SelectTable(table)
	if table == "" {
		return domain.SampleSet{}, nil
	}
	src, ok := sess.SQLSource()
	if !ok {
		return nil, fmt.Errorf("%w: no SQL connection", domain.ErrNoSourceData)
	}
	return s.preview(ctx, sess, false, token, src, table)
}

// SelectCollection records the collection and captures its preview.
func (s *BridgeService) SelectCollection(ctx context.Context, id, collection string) (domain.SampleSet, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	token := sess.SelectCollection(collection)
	if collection == "" {
		return domain.SampleSet{}, nil
	}
	src, ok := sess.DocumentSource()
	if !ok {
		return nil, fmt.Errorf("%w: no MongoDB connection", domain.ErrNoSourceData)
	}
	return s.preview(ctx, sess, true, token, src, collection)
}

func (s *BridgeService) preview(ctx context.Context, sess *session.Session, document bool, token uint64, src session.Source, name string) (domain.SampleSet, error) {
	set, err := s.fetchPreview(ctx, src, name)
	s.metrics.ObservePreview(kind(document), err)
	if err != nil {
		log.Printf("[%s] error fetching preview of %s: %v", tag(document), name, err)
		sess.Notify(session.LevelError, "Preview Error: "+err.Error())
		return nil, &domain.SourceIOError{Source: name, Err: err}
	}
	if !sess.SetPreview(token, set) {
		log.Printf("[%s] discarded stale preview of %s", tag(document), name)
	}
	return set, nil
}

func (s *BridgeService) fetchPreview(ctx context.Context, src session.Source, name string) (domain.SampleSet, error) {
	c, err := s.open(src)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Preview(ctx, name, s.opts.PreviewLimit)
}

func (s *BridgeService) open(src session.Source) (dbclient.Connector, error) {
	if s.connections != nil {
		return s.connections.Connect(&src.Conn, src.Password)
	}
	return dbclient.NewConnector(&src.Conn, src.Password, dbclient.Options{ConnectTimeout: s.opts.ConnectTimeout})
}

// ── Upload ─────────────────────────────────────────────────

// Upload stores a JSON file for the session. The latest upload is the one
// json_to_sql and json_to_nosql convert.
func (s *BridgeService) Upload(ctx context.Context, id, filename string, data []byte) (string, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return "", err
	}
	name := filename
	if s.uploads != nil {
		name, err = s.uploads.Save(id, filename, data)
	} else {
		name, err = uploads.CleanName(filename)
	}
	if err != nil {
		return "", err
	}
	sess.AddUpload(convert.Upload{Filename: name, Data: data})
	emit(ctx, s.emitter, "session:uploaded", map[string]string{"sessionId": id, "filename": name})
	return name, nil
}

// ── Convert + Download ─────────────────────────────────────

// Convert runs the conversion for the session's mode. The previous download
// is cleared first, so a failure never leaves a stale artifact behind.
func (s *BridgeService) Convert(ctx context.Context, id string) (*domain.Result, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	sess.ResetArtifact()

	mode, in := sess.Input()
	if !mode.Valid() {
		sess.Notify(session.LevelError, "Invalid conversion type.")
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	res, err := convert.Convert(mode, in)
	if err != nil {
		s.metrics.ObserveConversion(string(mode), 0, err)
		log.Printf("[CONVERT] %s failed for session %s: %v", mode, id, err)
		sess.Notify(session.LevelError, "Conversion Error: "+err.Error())
		return nil, err
	}
	s.metrics.ObserveConversion(string(mode), len(res.Content), nil)

	sess.SetArtifact(res)
	if s.artifacts != nil {
		a := &domain.Artifact{SessionID: id, Mode: mode, Filename: res.Filename}
		if err := s.artifacts.SaveArtifact(ctx, a, res.Content); err != nil {
			log.Printf("[CONVERT] could not keep artifact %s: %v", res.Filename, err)
		}
	}
	sess.Notify(session.LevelSuccess, "Conversion successful! Your download is ready.")
	emit(ctx, s.emitter, "session:converted", map[string]string{"sessionId": id, "filename": res.Filename})
	return res, nil
}

// Download returns the ready artifact.
func (s *BridgeService) Download(id string) (*domain.Result, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	res, ok := sess.Artifact()
	if !ok {
		return nil, fmt.Errorf("%w: no conversion is ready for download", domain.ErrNoSourceData)
	}
	return res, nil
}

// ── Artifacts ──────────────────────────────────────────────

// ListArtifacts returns stored conversion results, newest first.
func (s *BridgeService) ListArtifacts(ctx context.Context, limit int) ([]domain.Artifact, error) {
	if s.artifacts == nil {
		return []domain.Artifact{}, nil
	}
	return s.artifacts.ListArtifacts(ctx, limit)
}

// GetArtifact returns a stored conversion result with its content.
func (s *BridgeService) GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, string, error) {
	if s.artifacts == nil {
		return nil, "", fmt.Errorf("artifact %s: %w", artifactID, domain.ErrNotFound)
	}
	return s.artifacts.GetArtifact(ctx, artifactID)
}

// SweepSessions expires idle sessions.
func (s *BridgeService) SweepSessions() int {
	return len(s.sessions.Sweep())
}

func kind(document bool) string {
	if document {
		return "document"
	}
	return "sql"
}

func tag(document bool) string {
	if document {
		return "MONGO"
	}
	return "SQL"
}
