// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the response status code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogMiddleware logs each HTTP request with its method, path, status and
// duration using Logrus.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("http request")
		})
	}
}

// LogSocketConnect logs a WebSocket client connecting to a dealer endpoint.
func LogSocketConnect(logger *logrus.Logger, remoteAddr, dealerCode string) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"dealer": dealerCode,
	}).Info("websocket connected")
}

// LogSocketDisconnect logs a WebSocket client disconnecting from a dealer
// endpoint.
func LogSocketDisconnect(logger *logrus.Logger, remoteAddr, dealerCode string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"dealer": dealerCode,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("websocket disconnected")
}
