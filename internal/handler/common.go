// Package handler holds the Echo handlers of the HTTP API.  Handlers bind
// and validate requests, call the services and translate service errors
// into status codes.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/middleware"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the user_id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errNoUser
}

// actor builds the service actor of the request.
func actor(c echo.Context) (service.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return service.Actor{ID: id, IsAdmin: role == model.RoleAdmin}, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// paging reads ?skip=&limit=.  Absent or malformed values fall back to the
// service defaults.
func paging(c echo.Context) (int, int) {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return skip, limit
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch service.ErrorKind(err) {
	case "invalid_interval", "invalid_identifier", "validation", "password_too_long":
		return http.StatusBadRequest
	case "invalid_credentials":
		return http.StatusUnauthorized
	case "not_authorized":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict", "already_exists", "room_in_use":
		return http.StatusConflict
	case "room_inactive":
		return http.StatusUnprocessableEntity
	case "room_busy":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes the error response for err.  Internal errors are logged and
// hidden from the client.
func fail(c echo.Context, log *slog.Logger, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", c.Request().Method),
			slog.String("route", c.Path()),
			logger.Err(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	if status == http.StatusServiceUnavailable {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, echo.Map{"error": publicMessage(err)})
}

// publicMessage strips the op prefixes added while the error travelled up.
func publicMessage(err error) string {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
