package infrastructure

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-stomp-worker/internal/config"
	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

type Logger struct {
	*zerolog.Logger
}

// New builds the service logger. Unknown levels fall back to info.
func New(cfg config.LoggingConfig) Logger {
	return newLogger(os.Stdout, cfg)
}

func NewTestLogger() Logger {
	logger := zerolog.Nop()

	return Logger{Logger: &logger}
}

func newLogger(out io.Writer, cfg config.LoggingConfig) Logger {
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).
		With().
		Timestamp().
		Logger()

	return Logger{Logger: &logger}
}

// ParseLevel returns fallback for empty or unknown level names.
func ParseLevel(level string, fallback zerolog.Level) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return fallback
	}

	return parsed
}

// QueueLogger adapts the service logger for the queue and consumer packages,
// which only emit entries at or above the queue log level.
func (l Logger) QueueLogger(queueLevel string, component string) queue.Logger {
	return queue.NewLoggerAdapter(
		l.With().Str("component", component).Logger(),
		ParseLevel(queueLevel, zerolog.WarnLevel),
	)
}
