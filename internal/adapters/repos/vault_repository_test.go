package repos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-stomp-worker/internal/config"
)

func TestVaultRepository_GetSecrets(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/apps/data/svc-stomp-worker", r.URL.Path)
		assert.Equal(t, "s.token", r.Header.Get("X-Vault-Token"))
		assert.Equal(t, "team", r.Header.Get("X-Vault-Namespace"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     map[string]any{"STOMP_LOGIN": "guest"},
				"metadata": map[string]any{"current_version": 3},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewVaultClient(config.SecretStorageConfig{
		Address:   server.URL,
		Timeout:   time.Second,
		Namespace: "team",
	})
	require.NoError(t, err)

	repo := NewVaultRepository(client)
	repo.SetToken("s.token")

	secret, err := repo.GetSecrets(context.Background(), "apps/data/svc-stomp-worker")
	require.NoError(t, err)
	require.NotNil(t, secret)

	data, ok := secret.Data["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "guest", data["STOMP_LOGIN"])
}
