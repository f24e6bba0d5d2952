package queue

import (
	"github.com/rs/zerolog"
)

// LoggerAdapter adapts a zerolog logger to the queue logger interface.
// Events below the minimum level are suppressed, not merely formatted differently.
type LoggerAdapter struct {
	logger zerolog.Logger
}

// NewLoggerAdapter creates a new logger adapter that only emits events at or above minLevel.
func NewLoggerAdapter(logger zerolog.Logger, minLevel zerolog.Level) *LoggerAdapter {
	if logger.GetLevel() > minLevel {
		minLevel = logger.GetLevel()
	}

	return &LoggerAdapter{logger: logger.Level(minLevel)}
}

// Info returns an info log event
func (l *LoggerAdapter) Info() LogEvent {
	return &LogEventAdapter{event: l.logger.Info()}
}

// Error returns an error log event
func (l *LoggerAdapter) Error() LogEvent {
	return &LogEventAdapter{event: l.logger.Error()}
}

// Debug returns a debug log event
func (l *LoggerAdapter) Debug() LogEvent {
	return &LogEventAdapter{event: l.logger.Debug()}
}

// LogEventAdapter adapts zerolog events to the queue log event interface.
// A nil event belongs to a suppressed level and discards every call.
type LogEventAdapter struct {
	event *zerolog.Event
}

// Enabled reports whether the event will be written.
func (l *LogEventAdapter) Enabled() bool {
	return l.event.Enabled()
}

// Msg logs a message
func (l *LogEventAdapter) Msg(msg string) {
	l.event.Msg(msg)
}

// Err adds an error to the log event
func (l *LogEventAdapter) Err(err error) LogEvent {
	l.event = l.event.Err(err)

	return l
}

// Str adds a string field to the log event
func (l *LogEventAdapter) Str(key, value string) LogEvent {
	l.event = l.event.Str(key, value)

	return l
}

// Int adds an integer field to the log event
func (l *LogEventAdapter) Int(key string, value int) LogEvent {
	l.event = l.event.Int(key, value)

	return l
}
