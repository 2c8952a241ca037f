package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// otherRoute labels requests whose path is not a known route, keeping the
// label set bounded.
const otherRoute = "other"

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - mmbridge_requests_total (counter): method, status class, and route labels
//   - mmbridge_request_duration_seconds (histogram): method and route labels
//   - mmbridge_streaming_connections_active (gauge): held while a response is streamed
//
// routes lists the paths reported verbatim; any other path is labelled "other".
func MetricsMiddleware(next http.Handler, routes ...string) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		// Streaming is decided by the handler, so the gauge is raised when the
		// event-stream content type is first written.
		defer func() {
			if sw.streaming {
				StreamingConnections.Dec()
			}
		}()

		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if !known[route] {
			route = otherRoute
		}
		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(r.Method, statusStr, route).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status    int
	written   bool
	streaming bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		if strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream") {
			w.streaming = true
			StreamingConnections.Inc()
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *statusWriter) Flush() {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
