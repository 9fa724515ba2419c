package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/quote-board/internal/repository"
	"github.com/iliyamo/quote-board/internal/service"
)

// Every response uses the envelope {status, message?, data?}.
const (
	statusSuccess = "success"
	statusError   = "error"
)

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, echo.Map{"status": statusSuccess, "data": data})
}

func okMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, echo.Map{"status": statusSuccess, "message": msg})
}

// notFound replaces ErrNotFound with a 404 carrying msg.  Other errors pass
// through unchanged.
func notFound(err error, msg string) error {
	if errors.Is(err, service.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msg).SetInternal(err)
	}
	return err
}

// errorResponse maps an error to a status code and envelope.
func errorResponse(err error) (int, echo.Map) {
	body := func(msg string) echo.Map { return echo.Map{"status": statusError, "message": msg} }

	var verr *service.ValidationError
	var he *echo.HTTPError
	// HTTP errors go first: they wrap service errors with a better message.
	if errors.As(err, &he) {
		msg, _ := he.Message.(string)
		switch {
		case he.Code == http.StatusMethodNotAllowed:
			return http.StatusNotFound, body("Not Found")
		case he.Code >= http.StatusInternalServerError:
			return he.Code, body("Internal server error")
		case msg == "":
			msg = http.StatusText(he.Code)
		}
		return he.Code, body(msg)
	}

	switch {
	case errors.As(err, &verr):
		m := body("Validation failed")
		m["data"] = verr.Fields
		return http.StatusUnprocessableEntity, m
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusUnprocessableEntity, body("Validation failed")
	case errors.Is(err, service.ErrSelfVote):
		return http.StatusUnauthorized, body("You cannot vote for your own quote")
	case errors.Is(err, service.ErrForbidden):
		return http.StatusUnauthorized, body("Unauthorized")
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, repository.ErrTokenInvalid):
		return http.StatusUnauthorized, body("Unauthenticated")
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, body("Not Found")
	}
	return http.StatusInternalServerError, body("Internal server error")
}

// HTTPErrorHandler renders every error returned by a handler or middleware
// as an envelope.  Server errors are logged with the request context.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, payload := errorResponse(err)
	if code >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"uri":    c.Request().RequestURI,
		}).Error("request failed")
	}
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, payload)
	}
	if writeErr != nil {
		log.WithError(writeErr).Warn("write error response")
	}
}
