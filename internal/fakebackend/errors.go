package fakebackend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	errUserExists         = errors.New("user already exists")
	errInvalidCredentials = errors.New("invalid credentials")
	errWrongPassword      = errors.New("old password is incorrect")
	errUserNotFound       = errors.New("user not found")
	errLeadNotFound       = errors.New("lead not found")
	errForbidden          = errors.New("access forbidden")
)

// errorResponse is the backend's error envelope: {"message": "..."}.
type errorResponse struct {
	Message string `json:"message"`
}

// newHTTPErrorHandler maps known errors to status codes and renders the
// envelope. Unknown errors are logged and reported as a generic 500.
func newHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, errLeadNotFound):
		return http.StatusNotFound, "Lead not found"
	case errors.Is(err, errUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "Access forbidden"
	case errors.Is(err, errInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, errWrongPassword):
		return http.StatusBadRequest, "Old password is incorrect"
	case errors.Is(err, errUserExists):
		return http.StatusConflict, "User already exists"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
	return http.StatusInternalServerError, "Internal server error"
}
