package log

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger installs a request-scoped logger and logs completion of every request.
// requestID extracts the id assigned by an earlier middleware.
func RequestLogger(base *Logger, requestID func(*http.Request) string, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.WithComponent(ComponentHTTP).With(FieldRequestID, requestID(r))
			ctx := IntoContext(r.Context(), logger)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			LogHTTPEnd(logger, r, sw.status, time.Since(start), clientIP(r))
		})
	}
}

// LogHTTPEnd logs request completion at a level derived from the status code.
func LogHTTPEnd(logger *Logger, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().WithHTTPResponse(status, elapsed.Milliseconds(), status < 400)
	fields[FieldMethod] = r.Method
	fields[FieldPath] = r.URL.Path
	if r.URL.RawQuery != "" {
		fields[FieldQuery] = r.URL.RawQuery
	}
	fields[FieldClientIP] = clientIP
	fields[FieldUserAgent] = r.UserAgent()
	fields[FieldDurationHuman] = elapsed.String()

	logger.Log(r.Context(), level, "HTTP request completed", fields.ToSlice()...)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
