package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type skipAccessLogKey struct{}

type (
	// AccessLogger writes one entry per request served by the telemetry endpoint.
	AccessLogger struct {
		logger zerolog.Logger
	}

	// HealthFilter marks liveness checks and metric scrapes so they stay out of the access log.
	HealthFilter struct {
		paths           []string
		logHealthChecks bool
	}

	statusRecorder struct {
		http.ResponseWriter
		statusCode   int
		bytesWritten int64
	}
)

func NewAccessLogger(logger zerolog.Logger) *AccessLogger {
	return &AccessLogger{
		logger: logger.With().Str("component", "http_access").Logger(),
	}
}

func (a *AccessLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip, ok := r.Context().Value(skipAccessLogKey{}).(bool); ok && skip {
			next.ServeHTTP(w, r)

			return
		}

		startTime := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(startTime)

		var logEvent *zerolog.Event

		switch {
		case recorder.statusCode >= http.StatusInternalServerError:
			logEvent = a.logger.Error()
		case recorder.statusCode >= http.StatusBadRequest:
			logEvent = a.logger.Warn()
		default:
			logEvent = a.logger.Info()
		}

		logEvent.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Int("status_code", recorder.statusCode).
			Int64("response_size_bytes", recorder.bytesWritten).
			Dur("duration", duration)

		if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
			logEvent.Str("request_id", requestID)
		}

		logEvent.Msg("HTTP request completed")
	})
}

func NewHealthFilter(logHealthChecks bool, paths ...string) *HealthFilter {
	return &HealthFilter{
		paths:           paths,
		logHealthChecks: logHealthChecks,
	}
}

func (p *HealthFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.logHealthChecks {
			next.ServeHTTP(w, r)

			return
		}

		for _, path := range p.paths {
			if strings.HasSuffix(r.URL.Path, path) {
				ctx := context.WithValue(r.Context(), skipAccessLogKey{}, true)
				next.ServeHTTP(w, r.WithContext(ctx))

				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytesWritten += int64(n)

	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
