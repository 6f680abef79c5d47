package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"databridge/internal/domain"
	"databridge/internal/service"
)

type modeRequest struct {
	Mode string `json:"mode"`
}

type documentConnectRequest struct {
	URI      string `json:"uri"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type sourcesResponse struct {
	Tables      []string `json:"tables,omitempty"`
	Collections []string `json:"collections,omitempty"`
}

// ── Session lifecycle ──────────────────────────────────────

func (s *Server) createSession(c echo.Context) error {
	return c.JSON(http.StatusCreated, s.bridge.CreateSession(c.Request().Context()))
}

func (s *Server) getSession(c echo.Context) error {
	v, err := s.bridge.GetSession(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.bridge.CloseSession(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setMode(c echo.Context) error {
	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	v, err := s.bridge.SetMode(c.Param("id"), req.Mode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) notifications(c echo.Context) error {
	ns, err := s.bridge.Notifications(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ns)
}

// ── Connect + preview ──────────────────────────────────────

func (s *Server) connectSQL(c echo.Context) error {
	var req service.ConnectionInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	conn := domain.DatabaseConnection{
		Driver:   domain.DatabaseDriver(req.Driver),
		Host:     req.Host,
		Port:     req.Port,
		Database: req.Database,
		Username: req.Username,
		SSLMode:  req.SSLMode,
	}
	tables, err := s.bridge.ConnectSQL(c.Request().Context(), c.Param("id"), conn, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sourcesResponse{Tables: tables})
}

func (s *Server) connectDocument(c echo.Context) error {
	var req documentConnectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	host := req.URI
	if host == "" {
		host = req.Host
	}
	conn := domain.DatabaseConnection{
		Driver:   domain.DatabaseDriverMongoDB,
		Host:     host,
		Port:     req.Port,
		Database: req.Database,
		Username: req.Username,
	}
	collections, err := s.bridge.ConnectDocument(c.Request().Context(), c.Param("id"), conn, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sourcesResponse{Collections: collections})
}

func (s *Server) connectSaved(c echo.Context) error {
	ctx := c.Request().Context()
	saved, err := s.connections.GetConnection(ctx, c.Param("connId"))
	if err != nil {
		return err
	}
	names, err := s.bridge.ConnectSaved(ctx, c.Param("id"), saved.ID)
	if err != nil {
		return err
	}
	if saved.Driver.IsDocument() {
		return c.JSON(http.StatusOK, sourcesResponse{Collections: names})
	}
	return c.JSON(http.StatusOK, sourcesResponse{Tables: names})
}

func (s *Server) previewTable(c echo.Context) error {
	set, err := s.bridge.SelectTable(c.Request().Context(), c.Param("id"), c.Param("table"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, set)
}

func (s *Server) previewCollection(c echo.Context) error {
	set, err := s.bridge.SelectCollection(c.Request().Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, set)
}

// ── Upload ─────────────────────────────────────────────────

func (s *Server) upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(fmt.Errorf("read multipart form: %w", err))
	}
	files := form.File["files"]
	if len(files) == 0 {
		return badRequest(fmt.Errorf("no files in field %q", "files"))
	}

	stored := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return badRequest(fmt.Errorf("open %s: %w", fh.Filename, err))
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return badRequest(fmt.Errorf("read %s: %w", fh.Filename, err))
		}
		name, err := s.bridge.Upload(c.Request().Context(), c.Param("id"), fh.Filename, data)
		if err != nil {
			return err
		}
		stored = append(stored, name)
	}
	return c.JSON(http.StatusCreated, map[string][]string{"uploads": stored})
}

// ── Convert + download ─────────────────────────────────────

func (s *Server) convert(c echo.Context) error {
	res, err := s.bridge.Convert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"filename": res.Filename,
		"size":     len(res.Content),
	})
}

func (s *Server) download(c echo.Context) error {
	res, err := s.bridge.Download(c.Param("id"))
	if err != nil {
		return err
	}
	return attachment(c, res.Filename, res.Content)
}

// attachment sends content as a file download.
func attachment(c echo.Context, filename, content string) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return c.Blob(http.StatusOK, contentType(filename), []byte(content))
}

func contentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".json":
		return echo.MIMEApplicationJSONCharsetUTF8
	case ".sql":
		return "application/sql; charset=utf-8"
	default:
		return echo.MIMETextPlainCharsetUTF8
	}
}
