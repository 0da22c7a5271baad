package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggingMiddleware writes one structured line per request
type LoggingMiddleware struct {
	logger logrus.FieldLogger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger logrus.FieldLogger) *LoggingMiddleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoggingMiddleware{
		logger: logger.WithField("component", "http"),
	}
}

// RequestID makes sure every request carries an X-Request-ID and echoes it
// back on the response.
func (lm *LoggingMiddleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// LogRequests logs incoming requests with security information
func (lm *LoggingMiddleware) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ClientIP(r.Context())
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		entry := lm.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   clientIP,
			"user_agent":  r.UserAgent(),
			"request_id":  r.Header.Get("X-Request-ID"),
		})

		switch {
		case wrapped.statusCode == http.StatusTooManyRequests:
			entry.Warn("Rate limit exceeded")
		case wrapped.statusCode == http.StatusServiceUnavailable:
			entry.Warn("Request timed out or backend unavailable")
		case wrapped.statusCode >= 500:
			entry.Error("Request failed")
		default:
			entry.Info("Request handled")
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
