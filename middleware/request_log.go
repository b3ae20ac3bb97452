package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mnehpets/onerpc/endpoint"
)

// RequestLogProcessor writes one structured log record per request with the
// method, path, status, duration and request id.
//
// Requests that fail with an error are logged at Warn (4xx) or Error (5xx);
// everything else at Info.
type RequestLogProcessor struct {
	Logger *slog.Logger
}

// NewRequestLogProcessor creates a RequestLogProcessor. A nil logger selects
// slog.Default().
func NewRequestLogProcessor(logger *slog.Logger) *RequestLogProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestLogProcessor{Logger: logger}
}

// statusResponseWriter wraps http.ResponseWriter to capture the status code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.statusCode = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Process implements endpoint.Processor.
func (p *RequestLogProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	start := time.Now()
	sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	err := next(sw, r)

	status := sw.statusCode
	level := slog.LevelInfo
	if err != nil {
		// The handler writes the error response after the chain returns.
		status = http.StatusInternalServerError
		var ee *endpoint.EndpointError
		if errors.As(err, &ee) && ee.Status >= 100 {
			status = ee.Status
		}
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	}
	if id := w.Header().Get(RequestIDHeader); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if err != nil && status >= 400 {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.Logger.LogAttrs(r.Context(), level, "http request", attrs...)

	return err
}

var _ endpoint.Processor = (*RequestLogProcessor)(nil)
