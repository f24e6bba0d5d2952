package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

const yamlQueues = `
queues:
  - name: orders
    clientId: worker-1
    brokers:
      - tcp://broker-a:61613
      - tcp://broker-b:61613
    randomize: true
    destination: /queue/orders
    login: orders-user
    passcode: orders-secret
    nackOnRelease: true
    heartbeat:
      send: 4000
      receive: 8000
      observers:
        - strategy: emitter
        - strategy: server_alive
    timeout:
      write: 250
  - name: audit
    clientId: worker-2
    brokers:
      - stomp://broker-a:61613
    destination: /topic/audit
`

const tomlQueues = `
[[queues]]
name = "orders"
clientId = "worker-1"
brokers = ["tcp://broker-a:61613"]
destination = "/queue/orders"

[queues.timeout]
read = 250
`

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()

	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestLoadQueues(t *testing.T) {
	t.Parallel()

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/etc/worker/queues.yaml", yamlQueues)

		queues, err := LoadQueues(fs, "/etc/worker/queues.yaml")
		require.NoError(t, err)
		require.Len(t, queues, 2)

		orders := queues[0]
		assert.Equal(t, "orders", orders.Name)
		assert.Equal(t, "worker-1", orders.ClientID)
		assert.Equal(t, []string{"tcp://broker-a:61613", "tcp://broker-b:61613"}, orders.Brokers)
		assert.True(t, orders.Randomize)
		assert.True(t, orders.NackOnRelease)
		require.NotNil(t, orders.Heartbeat)
		assert.Equal(t, 4000, orders.Heartbeat.Send)
		assert.Len(t, orders.Heartbeat.Observers, 2)
		require.NotNil(t, orders.Timeout)
		assert.Nil(t, orders.Timeout.Read)
		require.NotNil(t, orders.Timeout.Write)
		assert.Equal(t, 250, *orders.Timeout.Write)

		assert.Equal(t, "audit", queues[1].Name)
		assert.Nil(t, queues[1].Heartbeat)
	})

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		writeFile(t, fs, "queues.toml", tomlQueues)

		queues, err := LoadQueues(fs, "queues.toml")
		require.NoError(t, err)
		require.Len(t, queues, 1)
		assert.Equal(t, "/queue/orders", queues[0].Destination)
		require.NotNil(t, queues[0].Timeout)
		require.NotNil(t, queues[0].Timeout.Read)
		assert.Equal(t, 250, *queues[0].Timeout.Read)
	})

	cases := []struct {
		name     string
		path     string
		content  string
		expected string
		is       error
	}{
		{
			name:     "unsupported extension",
			path:     "queues.json",
			content:  "{}",
			expected: "unsupported queue definitions format",
			is:       ErrUnsupportedFormat,
		},
		{
			name:     "empty list",
			path:     "queues.yaml",
			content:  "queues: []",
			expected: "no queues defined",
			is:       ErrNoQueues,
		},
		{
			name:     "non alphabetic name",
			path:     "queues.yml",
			content:  "queues:\n  - name: orders_v2\n",
			expected: `queue name "orders_v2" must contain letters only`,
		},
		{
			name:     "duplicate name",
			path:     "queues.yaml",
			content:  "queues:\n  - name: orders\n  - name: orders\n",
			expected: `queue "orders" is defined more than once`,
		},
		{
			name:     "unknown yaml field",
			path:     "queues.yaml",
			content:  "queues:\n  - name: orders\n    host: broker\n",
			expected: "failed to parse queue definitions",
		},
		{
			name:     "unknown toml field",
			path:     "queues.toml",
			content:  "[[queues]]\nname = \"orders\"\nhost = \"broker\"\n",
			expected: "failed to parse queue definitions",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			writeFile(t, fs, tc.path, tc.content)

			queues, err := LoadQueues(fs, tc.path)

			require.Error(t, err)
			assert.Nil(t, queues)
			assert.Contains(t, err.Error(), tc.expected)

			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadQueues(afero.NewMemMapFs(), "absent.yaml")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read queue definitions absent.yaml")
	})
}

func TestQueueDefinition_Build(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "queues.yaml", yamlQueues)

	queues, err := LoadQueues(fs, "queues.yaml")
	require.NoError(t, err)

	fallback := Credentials{Login: "shared", Passcode: "shared-secret"}

	t.Run("own credentials win", func(t *testing.T) {
		t.Parallel()

		cfg, err := queues[0].Build(fallback)
		require.NoError(t, err)

		assert.Equal(t, "worker-1", cfg.ClientID())
		assert.Equal(t, "orders-user", cfg.Login())
		assert.Equal(t, "orders-secret", cfg.Passcode())
		assert.True(t, cfg.NackOnRelease())
		assert.True(t, cfg.Brokers().Randomize)
		assert.Equal(t, 4*time.Second, cfg.Heartbeat().Send)
		assert.Equal(t, 8*time.Second, cfg.Heartbeat().Receive)
		assert.Equal(t, []queue.ObserverSpec{{Strategy: "emitter"}, {Strategy: "server_alive"}}, cfg.Heartbeat().Observers)
		assert.Equal(t, queue.Timeout{Read: 1500 * time.Millisecond, Write: 250 * time.Millisecond}, cfg.Timeout())
	})

	t.Run("fallback credentials and defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := queues[1].Build(fallback)
		require.NoError(t, err)

		assert.Equal(t, "shared", cfg.Login())
		assert.Equal(t, "shared-secret", cfg.Passcode())
		assert.False(t, cfg.NackOnRelease())
		assert.True(t, cfg.Heartbeat().IsZero())
		assert.Equal(t, queue.Timeout{Read: 1500 * time.Millisecond}, cfg.Timeout())
	})

	t.Run("invalid destination names the queue", func(t *testing.T) {
		t.Parallel()

		def := QueueDefinition{
			Name:        "broken",
			ClientID:    "worker",
			Brokers:     []string{"tcp://broker:61613"},
			Destination: "orders",
		}

		_, err := def.Build(Credentials{})

		require.Error(t, err)
		assert.True(t, errors.Is(err, queue.ErrInvalidConfiguration))
		assert.Contains(t, err.Error(), `queue "broken"`)
	})
}
