package log

import (
	"net/http"
	"time"
)

type loggingHandler struct {
	inner  http.Handler
	logger Logger
}

// NewLoggingHandler wraps a handler so that every request is logged with its
// method, path and duration.
func NewLoggingHandler(inner http.Handler, logger Logger) http.Handler {
	return &loggingHandler{inner: inner, logger: logger}
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.inner.ServeHTTP(w, r)
	h.logger.Info("request served",
		"method", r.Method,
		"path", r.URL.Path,
		"duration", time.Since(start))
}
