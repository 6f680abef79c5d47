// Package session holds the per-user conversion workspace: the selected mode,
// connected sources, the staged preview, uploads and the ready download.
package session

import (
	"sync"
	"time"

	"databridge/internal/convert"
	"databridge/internal/domain"
)

// Connection status values.
const (
	StatusNone    = ""
	StatusSuccess = "success"
	StatusError   = "error"
)

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Notification is a toast message queued for the user.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Source is a connection the session talks to, with its password.
type Source struct {
	Conn     domain.DatabaseConnection
	Password string
}

// Session is one user's workspace. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu                 sync.Mutex
	mode               domain.ConversionMode
	status             string
	connecting         bool
	sqlSource          *Source
	docSource          *Source
	tables             []string
	collections        []string
	selectedTable      string
	selectedCollection string
	preview            domain.SampleSet
	previewGen         uint64
	uploads            []convert.Upload
	artifact           *domain.Result
	notifications      []Notification
	lastAccess         time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		mode:       domain.ModeSQLToNoSQL,
		lastAccess: now,
	}
}

// View is a read-only snapshot of a session for API responses.
type View struct {
	ID                 string                `json:"id"`
	Mode               domain.ConversionMode `json:"mode"`
	ConnectionStatus   string                `json:"connectionStatus"`
	IsConnecting       bool                  `json:"isConnecting"`
	Tables             []string              `json:"tables"`
	Collections        []string              `json:"collections"`
	SelectedTable      string                `json:"selectedTable"`
	SelectedCollection string                `json:"selectedCollection"`
	Preview            domain.SampleSet      `json:"preview"`
	Uploads            []string              `json:"uploads"`
	DownloadReady      bool                  `json:"downloadReady"`
	DownloadFilename   string                `json:"downloadFilename,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:                 s.ID,
		Mode:               s.mode,
		ConnectionStatus:   s.status,
		IsConnecting:       s.connecting,
		Tables:             append([]string{}, s.tables...),
		Collections:        append([]string{}, s.collections...),
		SelectedTable:      s.selectedTable,
		SelectedCollection: s.selectedCollection,
		Preview:            append(domain.SampleSet{}, s.preview...),
		Uploads:            make([]string, 0, len(s.uploads)),
	}
	for _, u := range s.uploads {
		v.Uploads = append(v.Uploads, u.Filename)
	}
	if s.artifact != nil {
		v.DownloadReady = true
		v.DownloadFilename = s.artifact.Filename
	}
	return v
}

// Mode returns the selected conversion mode.
func (s *Session) Mode() domain.ConversionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the conversion mode and resets the connection status,
// source lists, selections, preview and artifact. Uploads are kept.
func (s *Session) SetMode(mode domain.ConversionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.status = StatusNone
	s.tables = nil
	s.collections = nil
	s.selectedTable = ""
	s.selectedCollection = ""
	s.resetPreviewLocked()
	s.artifact = nil
}

// BeginConnect records the source being tested and clears everything that
// depended on the previous one.
func (s *Session) BeginConnect(document bool, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = true
	s.status = StatusNone
	if document {
		s.docSource = &src
		s.collections = nil
		s.selectedCollection = ""
	} else {
		s.sqlSource = &src
		s.tables = nil
		s.selectedTable = ""
	}
	s.resetPreviewLocked()
	s.artifact = nil
}

// FinishConnect stores the listed sources, or marks the connection failed.
func (s *Session) FinishConnect(document bool, names []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false
	if err != nil {
		s.status = StatusError
		return
	}
	s.status = StatusSuccess
	if document {
		s.collections = names
	} else {
		s.tables = names
	}
}

// SQLSource returns the connected SQL source, if any.
func (s *Session) SQLSource() (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sqlSource == nil {
		return Source{}, false
	}
	return *s.sqlSource, true
}

// DocumentSource returns the connected document source, if any.
func (s *Session) DocumentSource() (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docSource == nil {
		return Source{}, false
	}
	return *s.docSource, true
}

// SelectTable records the selection, drops the old preview and download and
// returns a token that SetPreview must present.
func (s *Session) SelectTable(table string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTable = table
	s.resetPreviewLocked()
	s.artifact = nil
	return s.previewGen
}

// SelectCollection is SelectTable for the document side.
func (s *Session) SelectCollection(collection string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedCollection = collection
	s.resetPreviewLocked()
	s.artifact = nil
	return s.previewGen
}

// SetPreview replaces the staged preview. It is ignored, returning false,
// when another selection happened after the one that issued token.
func (s *Session) SetPreview(token uint64, set domain.SampleSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.previewGen {
		return false
	}
	s.preview = set
	return true
}

// ResetPreview drops the staged preview.
func (s *Session) ResetPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetPreviewLocked()
}

func (s *Session) resetPreviewLocked() {
	s.preview = nil
	s.previewGen++
}

// AddUpload stages an uploaded file. The latest upload is the one converted.
func (s *Session) AddUpload(u convert.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, u)
}

// LatestUpload returns the most recent upload.
func (s *Session) LatestUpload() (convert.Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uploads) == 0 {
		return convert.Upload{}, false
	}
	return s.uploads[len(s.uploads)-1], true
}

// Input builds the conversion input for the current mode.
func (s *Session) Input() (domain.ConversionMode, convert.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var in convert.Input
	switch s.mode {
	case domain.ModeSQLToNoSQL:
		in.Source = s.selectedTable
		in.Preview = s.preview
	case domain.ModeNoSQLToSQL:
		in.Source = s.selectedCollection
		in.Preview = s.preview
	case domain.ModeJSONToSQL, domain.ModeJSONToNoSQL:
		if n := len(s.uploads); n > 0 {
			u := s.uploads[n-1]
			in.Upload = &u
		}
	}
	return s.mode, in
}

// SetArtifact makes res the ready download.
func (s *Session) SetArtifact(res *domain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = res
}

// ResetArtifact clears the ready download.
func (s *Session) ResetArtifact() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = nil
}

// Artifact returns the ready download, if any.
func (s *Session) Artifact() (*domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact, s.artifact != nil
}

// Notify queues a toast.
func (s *Session) Notify(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, Notification{Level: level, Message: message, At: time.Now()})
}

// DrainNotifications returns and clears the queued toasts.
func (s *Session) DrainNotifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notifications
	s.notifications = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}
