package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// NewServer builds the HTTP router exposing the relay. The same router backs
// both the standalone server and the Lambda entrypoint.
func NewServer(relay *MessageRelay) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	e.HTTPErrorHandler = relayErrorHandler(e)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(accessLogger)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/messages", messagesHandler(relay))

	return e
}

func messagesHandler(relay *MessageRelay) echo.HandlerFunc {
	return func(c echo.Context) error {
		// the body is JSON whatever Content-Type the caller sent
		var request MessageRequest
		if err := json.NewDecoder(c.Request().Body).Decode(&request); err != nil {
			log.Debug(fmt.Sprintf("error decoding message request: %+v", err))
			return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
		}

		if err := c.Validate(&request); err != nil {
			log.Debug(fmt.Sprintf("invalid message request: %+v", err))
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}

		response, err := relay.Relay(c.Request().Context(), request)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, response)
	}
}

func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err.Error()
	}

	switch validationErrors[0].StructField() {
	case "Message":
		return "message is required"
	case "ThreadId":
		return "thread_id must not be empty"
	default:
		return validationErrors[0].Error()
	}
}

// relayErrorHandler maps relay errors onto HTTP status codes. Errors that
// carry no classification become a generic internal server error.
func relayErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var relayError RelayError
		var httpError *echo.HTTPError

		switch {
		case errors.As(err, &relayError):
			code := http.StatusInternalServerError
			if relayError.Type == RelayErrorTypeClient {
				code = http.StatusBadRequest
			}
			log.WithField("request_id", requestId(c)).Info(fmt.Sprintf("relay error: %s", relayError.Message))
			err = echo.NewHTTPError(code, relayError.Message)

		case errors.As(err, &httpError):

		default:
			log.WithField("request_id", requestId(c)).Error(fmt.Sprintf("unhandled error relaying message: %+v", err))
			var chatGPTError ChatGPTError
			if errors.As(err, &chatGPTError) {
				log.Debug(fmt.Sprintf("error response: %+v", chatGPTError.Body))
			}
			err = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}

		e.DefaultHTTPErrorHandler(err, c)
	}
}

// accessLogger writes one log entry per request once the response is sent.
func accessLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()
		log.WithFields(log.Fields{
			"request_id": requestId(c),
			"remote_ip":  c.RealIP(),
			"request":    fmt.Sprintf("%s %s", req.Method, req.RequestURI),
			"status":     res.Status,
			"size":       res.Size,
			"latency":    time.Since(start).String(),
		}).Info("request handled")
		return nil
	}
}

func requestId(c echo.Context) string {
	id := c.Request().Header.Get(echo.HeaderXRequestID)
	if id == "" {
		id = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	return id
}
