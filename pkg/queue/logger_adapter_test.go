package queue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoggerAdapter_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		minLevel zerolog.Level
		log      func(l Logger)
		expected bool
	}{
		{name: "error above warn threshold", minLevel: zerolog.WarnLevel, log: func(l Logger) { l.Error().Msg("m") }, expected: true},
		{name: "info below warn threshold", minLevel: zerolog.WarnLevel, log: func(l Logger) { l.Info().Msg("m") }, expected: false},
		{name: "debug below warn threshold", minLevel: zerolog.WarnLevel, log: func(l Logger) { l.Debug().Msg("m") }, expected: false},
		{name: "info at info threshold", minLevel: zerolog.InfoLevel, log: func(l Logger) { l.Info().Msg("m") }, expected: true},
		{name: "debug at debug threshold", minLevel: zerolog.DebugLevel, log: func(l Logger) { l.Debug().Msg("m") }, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			adapter := NewLoggerAdapter(zerolog.New(&buf), tt.minLevel)

			tt.log(adapter)

			assert.Equal(t, tt.expected, buf.Len() > 0)
		})
	}
}

func TestLoggerAdapter_KeepsStricterLoggerLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewLoggerAdapter(zerolog.New(&buf).Level(zerolog.ErrorLevel), zerolog.DebugLevel)

	adapter.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	adapter.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogEventAdapter_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewLoggerAdapter(zerolog.New(&buf), zerolog.DebugLevel)

	adapter.Error().
		Err(errors.New("boom")).
		Str("destination", "/queue/a").
		Int("attempt", 3).
		Msg("failed")

	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"destination":"/queue/a"`)
	assert.Contains(t, out, `"attempt":3`)
	assert.Contains(t, out, `"message":"failed"`)
}

func TestLogEventAdapter_SuppressedEventIsSafe(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewLoggerAdapter(zerolog.New(&buf), zerolog.ErrorLevel)

	event := adapter.Debug()
	assert.False(t, event.(*LogEventAdapter).Enabled())

	assert.NotPanics(t, func() {
		event.Err(errors.New("boom")).Str("k", "v").Int("n", 1).Msg("dropped")
	})
	assert.Zero(t, buf.Len())
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		l := NopLogger()
		l.Info().Str("k", "v").Msg("m")
		l.Error().Err(errors.New("e")).Int("n", 1).Msg("m")
		l.Debug().Msg("m")
	})
}
