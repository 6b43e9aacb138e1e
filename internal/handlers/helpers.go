package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/service"
	"github.com/Skotchmaster/research_repository/internal/util"
)

const msgInvalidData = "The given data was invalid."

func CreateCookie(name, value, path string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func pageParams(c echo.Context) (repo.Page, int, int) {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	return repo.Page{Offset: from, Limit: limit}, page, limit
}

func paramID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func fieldErrors(field, msg string) echo.Map {
	return echo.Map{"message": msg, "errors": map[string][]string{field: {msg}}}
}

// fail logs err under event and converts it to the HTTP error the client
// sees. Internal details never leave the server.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	var (
		te *service.ThrottleError
		fe *service.FieldError
		ve *service.ValidationError
		ce *service.ConflictError
	)
	switch {
	case errors.As(err, &te):
		c.Response().Header().Set("Retry-After", strconv.Itoa(service.RetryAfterSeconds(te.RetryAfter)))
		l.Warn(event, "status", 422, "reason", "throttled", "field", te.Field)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, fieldErrors(te.Field, te.Message))
	case errors.As(err, &fe):
		if fe.Cause != nil {
			l.Error(event, "status", 422, "reason", fe.Message, "field", fe.Field, "error", fe.Cause)
		} else {
			l.Warn(event, "status", 422, "reason", fe.Message, "field", fe.Field)
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, fieldErrors(fe.Field, fe.Message))
	case errors.As(err, &ve):
		l.Warn(event, "status", 422, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{"message": msgInvalidData, "errors": ve.Fields})
	case errors.As(err, &ce):
		l.Warn(event, "status", 409, "reason", "in_use", "count", ce.Count)
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"message": ce.Error(), "count": ce.Count})
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		l.Warn(event, "status", 403, "error", err)
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrUnavailable):
		l.Error(event, "status", 503, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service unavailable")
	}
	l.Error(event, "status", 500, "reason", "internal", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func bindBody(c echo.Context, l *slog.Logger, event string, dst any) error {
	if err := c.Bind(dst); err != nil {
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

type listResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
