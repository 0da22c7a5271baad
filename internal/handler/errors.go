package handler

import (
	"encoding/json"
	"net/http"

	"lab-manager/internal/view"
	apperrors "lab-manager/pkg/errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorHandler provides centralized error handling functionality for handlers
type ErrorHandler struct {
	Logger   logrus.FieldLogger
	Renderer *view.Renderer
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(logger logrus.FieldLogger, renderer *view.Renderer) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		Logger:   logger,
		Renderer: renderer,
	}
}

// RenderPage renders a page, falling back to a plain 500 if the template fails
func (e *ErrorHandler) RenderPage(w http.ResponseWriter, statusCode int, page string, data interface{}) {
	if err := e.Renderer.Render(w, statusCode, page, data); err != nil {
		e.Logger.WithError(err).WithField("page", page).Error("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// RenderNotFound renders the computer not found page
func (e *ErrorHandler) RenderNotFound(w http.ResponseWriter) {
	e.RenderPage(w, http.StatusNotFound, view.PageNotFound, view.NotFoundPage{})
}

// SendJSONResponse sends a generic JSON response
func (e *ErrorHandler) SendJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		e.Logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// LogSilently records an error the user is never shown
func (e *ErrorHandler) LogSilently(err error, operation string, fields logrus.Fields) {
	e.Logger.WithError(err).WithFields(fields).Warnf("Failed to %s", operation)
}

// FormError maps a service error to the status and banner text of a form
func (e *ErrorHandler) FormError(err error) (int, string) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.GetHTTPStatus(), appErr.Message
	}
	return http.StatusInternalServerError, err.Error()
}

// ParseUUID parses a path id. Invalid ids are logged at debug level only.
func (e *ErrorHandler) ParseUUID(idStr string) (uuid.UUID, bool) {
	if idStr == "" {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		e.Logger.WithField("id", idStr).Debug("Invalid computer id")
		return uuid.Nil, false
	}
	return id, true
}
