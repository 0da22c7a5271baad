package handler

import (
	"context"
	"net/http"
	"time"
)

// ResponseHelper provides common response utilities and context management
type ResponseHelper struct{}

// NewResponseHelper creates a new ResponseHelper instance
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// ContextKey type for context keys to avoid collisions
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
)

// CreateRequestContext creates a context with timeout and optional request ID
func (rh *ResponseHelper) CreateRequestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)

	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
	}

	return ctx, cancel
}

// GetRequestIDFromContext extracts request ID from context
func (rh *ResponseHelper) GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// RedirectSeeOther finishes a POST by sending the browser to url with a GET.
func (rh *ResponseHelper) RedirectSeeOther(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// CreateHealthCheckData creates health check response data. Only the
// backend decides the overall status.
func (rh *ResponseHelper) CreateHealthCheckData(backendErr error, notifier string) map[string]interface{} {
	data := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"service":   "lab-manager",
		"status":    "healthy",
		"backend":   "ok",
		"notifier":  notifier,
	}
	if backendErr != nil {
		data["status"] = "unhealthy"
		data["backend"] = backendErr.Error()
	}
	return data
}
