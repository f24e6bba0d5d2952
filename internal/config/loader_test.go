package config

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-stomp-worker/internal/mocks"
)

func TestInit(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "sandbox")
	t.Setenv("APP_SERVICE_VERSION", "1.0.0")
	t.Setenv("APP_COMMIT_SHA", "1234xwz")
	t.Setenv("LOGGING_LEVEL", "debug")
	t.Setenv("STOMP_CONFIG_FILE", "/etc/worker/queues.toml")
	t.Setenv("STOMP_LOGIN", "john.doe")
	t.Setenv("STOMP_PASSCODE", "insecure.password")
	t.Setenv("CONSUMER_READ_INTERVAL", "250ms")
	t.Setenv("WORKER_BINDINGS", "orders:webhook,audit:discard")

	cfg, err := Init()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "sandbox", cfg.AppConfig.Env)
	assert.Equal(t, "svc-stomp-worker", cfg.AppConfig.ServiceName)
	assert.Equal(t, "1.0.0", cfg.AppConfig.ServiceVersion)
	assert.Equal(t, "1234xwz", cfg.AppConfig.CommitSHA)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.QueueLevel)
	assert.Equal(t, "/etc/worker/queues.toml", cfg.Stomp.ConfigFile)
	assert.Equal(t, "john.doe", cfg.Stomp.Login)
	assert.Equal(t, "insecure.password", cfg.Stomp.Passcode)
	assert.Equal(t, uint32(5), cfg.Stomp.CircuitBreaker.MaxFailures)
	assert.Equal(t, 250*time.Millisecond, cfg.Consumer.ReadInterval)
	assert.Equal(t, time.Hour, cfg.Consumer.LeaseTime)
	assert.Equal(t, map[string]string{"orders": WorkerWebhook, "audit": WorkerDiscard}, cfg.Workers.Bindings)
	assert.Equal(t, time.Second, cfg.Backoff.BaseDelay)
}

func newTestLoader(t *testing.T, repo *mocks.FakeSecretsRepository) (*Loader, *ServiceConfig, afero.Fs) {
	t.Helper()

	cfg := &ServiceConfig{
		Stomp: StompConfig{ConfigFile: "queues.yaml"},
		SecretStorage: SecretStorageConfig{
			Enabled:    true,
			AuthMethod: "token",
			Token:      "s.token",
			MountPath:  "svc-stomp-worker",
			Timeout:    time.Second,
		},
	}

	fs := afero.NewMemMapFs()

	if repo == nil {
		return NewLoader(cfg, fs, nil, 0), cfg, fs
	}

	return NewLoader(cfg, fs, repo, 0), cfg, fs
}

func kvSecret(data map[string]any, version float64) *api.Secret {
	return &api.Secret{
		Data: map[string]any{
			"data":     data,
			"metadata": map[string]any{"current_version": version},
		},
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	t.Run("applies broker credentials", func(t *testing.T) {
		t.Parallel()

		repo := &mocks.FakeSecretsRepository{}
		repo.GetSecretsReturns(kvSecret(map[string]any{
			"STOMP_LOGIN":    "vault-user",
			"STOMP_PASSCODE": "vault-secret",
			"WEBHOOK_URL":    "https://hooks.example.com/items",
			"IGNORED":        "value",
		}, 4), nil)

		loader, cfg, _ := newTestLoader(t, repo)

		version, err := loader.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, uint(4), version)
		assert.Equal(t, Credentials{Login: "vault-user", Passcode: "vault-secret"}, loader.Credentials())
		assert.Equal(t, "https://hooks.example.com/items", cfg.Workers.Webhook.URL)

		require.Equal(t, 1, repo.SetTokenCallCount())
		assert.Equal(t, "s.token", repo.SetTokenArgsForCall(0))

		_, path := repo.GetSecretsArgsForCall(0)
		assert.Equal(t, "apps/data/svc-stomp-worker", path)
	})

	t.Run("approle login", func(t *testing.T) {
		t.Parallel()

		repo := &mocks.FakeSecretsRepository{}
		repo.WriteWithContextReturns(&api.Secret{Auth: &api.SecretAuth{ClientToken: "s.approle"}}, nil)
		repo.GetSecretsReturns(kvSecret(map[string]any{}, 1), nil)

		loader, cfg, _ := newTestLoader(t, repo)
		cfg.SecretStorage.AuthMethod = "approle"
		cfg.SecretStorage.RoleID = "role"
		cfg.SecretStorage.SecretID = "secret"

		_, err := loader.Load(context.Background())
		require.NoError(t, err)

		_, path, data := repo.WriteWithContextArgsForCall(0)
		assert.Equal(t, "auth/approle/login", path)
		assert.Equal(t, "role", data["role_id"])
		assert.Equal(t, "s.approle", repo.SetTokenArgsForCall(0))
	})

	t.Run("disabled secret storage", func(t *testing.T) {
		t.Parallel()

		loader, cfg, _ := newTestLoader(t, nil)
		cfg.SecretStorage.Enabled = false

		_, err := loader.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret storage is not enabled")
	})

	t.Run("unsupported auth method", func(t *testing.T) {
		t.Parallel()

		loader, cfg, _ := newTestLoader(t, &mocks.FakeSecretsRepository{})
		cfg.SecretStorage.AuthMethod = "kerberos"

		_, err := loader.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported auth method: kerberos")
	})

	t.Run("missing data section", func(t *testing.T) {
		t.Parallel()

		repo := &mocks.FakeSecretsRepository{}
		repo.GetSecretsReturns(&api.Secret{Data: map[string]any{"unexpected": true}}, nil)

		loader, _, _ := newTestLoader(t, repo)

		_, err := loader.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing 'data' key")
	})

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()

		repo := &mocks.FakeSecretsRepository{}
		repo.GetSecretsReturns(nil, errors.New("permission denied"))

		loader, _, _ := newTestLoader(t, repo)

		_, err := loader.Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
		assert.Equal(t, 1, repo.GetSecretsCallCount())
	})
}

func TestLoader_LoadQueues(t *testing.T) {
	t.Parallel()

	loader, _, fs := newTestLoader(t, nil)
	writeFile(t, fs, "queues.yaml", yamlQueues)

	require.NoError(t, loader.LoadQueues())
	require.Len(t, loader.Queues(), 2)

	writeFile(t, fs, "queues.yaml", "queues: []")

	err := loader.LoadQueues()

	require.ErrorIs(t, err, ErrNoQueues)
	assert.Len(t, loader.Queues(), 2, "a failed reload keeps the previous definitions")
}

func TestLoader_HandleConfigReload(t *testing.T) {
	t.Parallel()

	repo := &mocks.FakeSecretsRepository{}
	repo.GetSecretsReturnsOnCall(0, kvSecret(map[string]any{"STOMP_LOGIN": "first"}, 1), nil)
	repo.GetSecretsReturnsOnCall(1, kvSecret(map[string]any{"STOMP_LOGIN": "first"}, 1), nil)
	repo.GetSecretsReturns(kvSecret(map[string]any{"STOMP_LOGIN": "rotated"}, 2), nil)

	loader, _, fs := newTestLoader(t, repo)
	writeFile(t, fs, "queues.yaml", yamlQueues)

	_, err := loader.Load(context.Background())
	require.NoError(t, err)

	loader.handleConfigReload(context.Background())

	select {
	case err := <-loader.reloadErrors:
		require.NoError(t, err)
	default:
		t.Fatal("reload status was not reported")
	}

	assert.Equal(t, "rotated", loader.Credentials().Login)
	assert.Len(t, loader.Queues(), 2)
}

func TestLoader_DumpConfig(t *testing.T) {
	t.Parallel()

	loader, cfg, fs := newTestLoader(t, nil)
	cfg.Stomp.Passcode = "top-secret"
	writeFile(t, fs, "queues.yaml", yamlQueues)
	require.NoError(t, loader.LoadQueues())

	var out bytes.Buffer
	loader.out = &out

	loader.DumpConfig()

	assert.Contains(t, out.String(), "=== Configuration Dump ===")
	assert.Contains(t, out.String(), `"name": "orders"`)
	assert.NotContains(t, out.String(), "top-secret")
	assert.NotContains(t, out.String(), "orders-secret")
}
