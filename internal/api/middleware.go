package api

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter records the status code and body size of a response.
// Flush is forwarded so SSE handlers keep working behind the middleware
// chain; Unwrap supports http.ResponseController.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.written += int64(n)
	return n, err
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// withRequestLog wraps the response writer and logs one line per request.
func withRequestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", sw.written,
				"elapsed", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// withRecovery turns handler panics into a 500 so one bad request cannot
// take the server down. Sits inside withRequestLog, so the recorded status
// tells whether the response had already started.
func withRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw, tracked := w.(*statusWriter)
			if !tracked {
				sw = &statusWriter{ResponseWriter: w}
			}

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				logger.Error("handler panic",
					"error", v,
					"method", r.Method,
					"path", r.URL.Path,
					"headers_sent", sw.status != 0,
				)
				if sw.status == 0 {
					writeError(sw, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
