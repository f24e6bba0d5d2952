package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/architeacher/svc-stomp-worker/internal/config"
)

func TestExponential_Backoff(t *testing.T) {
	t.Parallel()

	strategy := NewExponentialStrategy(config.BackoffConfig{
		BaseDelay:  time.Second,
		Multiplier: 2,
		Jitter:     0,
		MaxDelay:   10 * time.Second,
	})

	tests := []struct {
		name     string
		retries  int
		expected time.Duration
	}{
		{name: "first failure", retries: 0, expected: time.Second},
		{name: "second failure", retries: 1, expected: 2 * time.Second},
		{name: "third failure", retries: 2, expected: 4 * time.Second},
		{name: "capped", retries: 10, expected: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, strategy.Backoff(tt.retries))
		})
	}
}

func TestExponential_BackoffJitterStaysInBounds(t *testing.T) {
	t.Parallel()

	strategy := NewExponentialStrategy(config.BackoffConfig{
		BaseDelay:  time.Second,
		Multiplier: 1.6,
		Jitter:     0.2,
		MaxDelay:   10 * time.Second,
	})

	for i := 0; i < 100; i++ {
		d := strategy.Backoff(3)

		assert.GreaterOrEqual(t, d, 3270*time.Millisecond)
		assert.LessOrEqual(t, d, 4920*time.Millisecond)
	}
}
