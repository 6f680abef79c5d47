package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"databridge/internal/domain"
	"databridge/internal/service"
	"databridge/internal/uploads"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var httpErr *echo.HTTPError
	var ioErr *domain.SourceIOError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoSourceData),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, uploads.ErrRejected):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrJobRunning):
		return http.StatusConflict
	case errors.As(err, &ioErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusFor(err)
	msg := err.Error()
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg = http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Error: msg})
	}
	if err != nil {
		log.Printf("[HTTP] failed to write error response: %v", err)
	}
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
