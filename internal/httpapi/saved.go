package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"databridge/internal/service"
)

// ── Saved connections ──────────────────────────────────────

func (s *Server) listConnections(c echo.Context) error {
	conns, err := s.connections.ListConnections(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conns)
}

func (s *Server) createConnection(c echo.Context) error {
	var req service.ConnectionInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	conn, err := s.connections.CreateConnection(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, conn)
}

func (s *Server) getConnection(c echo.Context) error {
	conn, err := s.connections.GetConnection(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conn)
}

func (s *Server) updateConnection(c echo.Context) error {
	var req service.ConnectionInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	conn, err := s.connections.UpdateConnection(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conn)
}

func (s *Server) deleteConnection(c echo.Context) error {
	if err := s.connections.DeleteConnection(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) testConnection(c echo.Context) error {
	if err := s.connections.TestConnection(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) introspect(c echo.Context) error {
	info, err := s.connections.Introspect(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

// ── Export jobs ────────────────────────────────────────────

func (s *Server) listJobs(c echo.Context) error {
	jobs, err := s.exports.ListJobs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) createJob(c echo.Context) error {
	var req service.ExportJobInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	job, err := s.exports.CreateJob(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, job)
}

func (s *Server) getJob(c echo.Context) error {
	job, err := s.exports.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) updateJob(c echo.Context) error {
	var req service.ExportJobInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	job, err := s.exports.UpdateJob(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) deleteJob(c echo.Context) error {
	if err := s.exports.DeleteJob(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) runJob(c echo.Context) error {
	run, err := s.exports.RunJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) listRuns(c echo.Context) error {
	runs, err := s.exports.ListRuns(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

// ── Artifacts ──────────────────────────────────────────────

func (s *Server) listArtifacts(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	arts, err := s.bridge.ListArtifacts(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, arts)
}

func (s *Server) getArtifact(c echo.Context) error {
	a, content, err := s.bridge.GetArtifact(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return attachment(c, a.Filename, content)
}
