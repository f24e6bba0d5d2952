package repos

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	"github.com/architeacher/svc-stomp-worker/internal/config"
)

type (
	// VaultRepository reads KV v2 secrets holding the broker credentials.
	VaultRepository struct {
		vaultClient *api.Client
	}
)

// NewVaultClient builds a Vault API client from the secret storage settings.
func NewVaultClient(cfg config.SecretStorageConfig) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address
	vaultConfig.Timeout = cfg.Timeout

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return client, nil
}

func NewVaultRepository(vaultClient *api.Client) *VaultRepository {
	return &VaultRepository{
		vaultClient: vaultClient,
	}
}

func (r *VaultRepository) SetToken(v string) {
	r.vaultClient.SetToken(v)
}

func (r *VaultRepository) GetSecrets(ctx context.Context, path string) (*api.Secret, error) {
	return r.vaultClient.Logical().ReadWithContext(ctx, path)
}

func (r *VaultRepository) WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	return r.vaultClient.Logical().WriteWithContext(ctx, path, data)
}
