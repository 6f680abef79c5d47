// Package httpapi exposes the conversion sessions, saved connections, export
// jobs and stored artifacts over HTTP.
//
// Routes:
//
//	POST   /api/sessions                                   → new session
//	GET    /api/sessions/:id                               → session view
//	DELETE /api/sessions/:id                               → drop session and uploads
//	PUT    /api/sessions/:id/mode                          → switch conversion mode
//	POST   /api/sessions/:id/sql/connect                   → test SQL source, list tables
//	POST   /api/sessions/:id/sql/tables/:table/preview     → capture table preview
//	POST   /api/sessions/:id/documents/connect             → test document source, list collections
//	POST   /api/sessions/:id/documents/collections/:name/preview
//	POST   /api/sessions/:id/connections/:connId/connect   → connect with a saved profile
//	POST   /api/sessions/:id/uploads                       → multipart "files"
//	POST   /api/sessions/:id/convert                       → run conversion
//	GET    /api/sessions/:id/download                      → converted file
//	GET    /api/sessions/:id/notifications                 → drain toasts
//	/api/connections, /api/jobs, /api/artifacts           → saved state
//	GET    /healthz, /metrics
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"databridge/internal/metrics"
	"databridge/internal/service"
)

// Options configure the server.
type Options struct {
	// MaxBodyBytes caps request bodies. Zero disables the limit.
	MaxBodyBytes int64
}

// Server wires the services to echo routes.
type Server struct {
	echo        *echo.Echo
	bridge      *service.BridgeService
	connections *service.ConnectionService
	exports     *service.ExportService
	metrics     *metrics.Metrics
}

// New builds the router. exports and m may be nil.
func New(
	bridge *service.BridgeService,
	connections *service.ConnectionService,
	exports *service.ExportService,
	m *metrics.Metrics,
	opts Options,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("[HTTP] %s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency.Round(time.Microsecond), v.Error)
				return nil
			}
			log.Printf("[HTTP] %s %s %d %s", v.Method, v.URI, v.Status, v.Latency.Round(time.Microsecond))
			return nil
		},
	}))
	if opts.MaxBodyBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", opts.MaxBodyBytes/1024+1)))
	}

	s := &Server{
		echo:        e,
		bridge:      bridge,
		connections: connections,
		exports:     exports,
		metrics:     m,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api")

	// ── Sessions ──
	sess := api.Group("/sessions")
	sess.POST("", s.createSession)
	sess.GET("/:id", s.getSession)
	sess.DELETE("/:id", s.deleteSession)
	sess.PUT("/:id/mode", s.setMode)
	sess.POST("/:id/sql/connect", s.connectSQL)
	sess.POST("/:id/sql/tables/:table/preview", s.previewTable)
	sess.POST("/:id/documents/connect", s.connectDocument)
	sess.POST("/:id/documents/collections/:name/preview", s.previewCollection)
	sess.POST("/:id/connections/:connId/connect", s.connectSaved)
	sess.POST("/:id/uploads", s.upload)
	sess.POST("/:id/convert", s.convert)
	sess.GET("/:id/download", s.download)
	sess.GET("/:id/notifications", s.notifications)

	// ── Saved connections ──
	conns := api.Group("/connections")
	conns.GET("", s.listConnections)
	conns.POST("", s.createConnection)
	conns.GET("/:id", s.getConnection)
	conns.PUT("/:id", s.updateConnection)
	conns.DELETE("/:id", s.deleteConnection)
	conns.POST("/:id/test", s.testConnection)
	conns.GET("/:id/introspect", s.introspect)

	// ── Export jobs ──
	if s.exports != nil {
		jobs := api.Group("/jobs")
		jobs.GET("", s.listJobs)
		jobs.POST("", s.createJob)
		jobs.GET("/:id", s.getJob)
		jobs.PUT("/:id", s.updateJob)
		jobs.DELETE("/:id", s.deleteJob)
		jobs.POST("/:id/run", s.runJob)
		jobs.GET("/:id/runs", s.listRuns)
	}

	// ── Artifacts ──
	api.GET("/artifacts", s.listArtifacts)
	api.GET("/artifacts/:id", s.getArtifact)
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	log.Printf("[HTTP] listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
