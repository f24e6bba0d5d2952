package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogger_Middleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		path          string
		statusCode    int
		requestID     string
		expectedLevel string
	}{
		{
			name:          "successful request logs info level",
			path:          "/metrics",
			statusCode:    http.StatusOK,
			expectedLevel: "info",
		},
		{
			name:          "client error logs warn level",
			path:          "/missing",
			statusCode:    http.StatusNotFound,
			expectedLevel: "warn",
		},
		{
			name:          "server error logs error level",
			path:          "/health",
			statusCode:    http.StatusServiceUnavailable,
			expectedLevel: "error",
		},
		{
			name:          "includes request_id when present",
			path:          "/metrics",
			statusCode:    http.StatusOK,
			requestID:     "req_12345",
			expectedLevel: "info",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			handler := NewAccessLogger(zerolog.New(&buf)).Middleware(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tc.statusCode)
					_, _ = w.Write([]byte("ok"))
				}),
			)

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.requestID != "" {
				req.Header.Set("X-Request-ID", tc.requestID)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			assert.Equal(t, tc.expectedLevel, entry["level"])
			assert.Equal(t, "http_access", entry["component"])
			assert.Equal(t, tc.path, entry["path"])
			assert.EqualValues(t, tc.statusCode, entry["status_code"])
			assert.EqualValues(t, 2, entry["response_size_bytes"])

			if tc.requestID != "" {
				assert.Equal(t, tc.requestID, entry["request_id"])
			} else {
				assert.NotContains(t, entry, "request_id")
			}
		})
	}
}

func TestHealthFilter_Middleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		path            string
		logHealthChecks bool
		shouldLog       bool
	}{
		{name: "skips health check", path: "/health", shouldLog: false},
		{name: "skips metric scrape", path: "/metrics", shouldLog: false},
		{name: "logs other paths", path: "/debug", shouldLog: true},
		{name: "logs health checks when enabled", path: "/health", logHealthChecks: true, shouldLog: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			handler := NewHealthFilter(tc.logHealthChecks, "/health", "/metrics").Middleware(
				NewAccessLogger(zerolog.New(&buf)).Middleware(inner),
			)

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			if tc.shouldLog {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
