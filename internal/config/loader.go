package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"

	"github.com/architeacher/svc-stomp-worker/internal/ports"
)

// Loader handles loading and reloading of the queue definitions and the broker secrets.
type Loader struct {
	cfg              *ServiceConfig
	fs               afero.Fs
	secretsRepo      ports.SecretsRepository
	configSignalChan chan os.Signal
	reloadErrors     chan error
	ticker           *time.Ticker
	lastVersion      uint
	out              io.Writer

	mu     sync.RWMutex
	queues []QueueDefinition
}

// NewLoader creates a new config loader instance. secretsRepo may be nil when secret storage is disabled.
func NewLoader(cfg *ServiceConfig, fs afero.Fs, secretsRepo ports.SecretsRepository, initialVersion uint) *Loader {
	return &Loader{
		cfg:              cfg,
		fs:               fs,
		secretsRepo:      secretsRepo,
		configSignalChan: make(chan os.Signal, 1),
		reloadErrors:     make(chan error, 1),
		lastVersion:      initialVersion,
		out:              os.Stdout,
	}
}

// Queues returns the last successfully loaded queue definitions.
func (l *Loader) Queues() []QueueDefinition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]QueueDefinition(nil), l.queues...)
}

// Credentials returns the fallback broker credentials.
func (l *Loader) Credentials() Credentials {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Credentials{
		Login:    l.cfg.Stomp.Login,
		Passcode: l.cfg.Stomp.Passcode,
	}
}

// LoadQueues reads the queue definitions file. Definitions that fail to load leave the previous set in place.
func (l *Loader) LoadQueues() error {
	queues, err := LoadQueues(l.fs, l.cfg.Stomp.ConfigFile)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.queues = queues
	l.mu.Unlock()

	return nil
}

// WatchConfigSignals monitors for SIGHUP (reload) and SIGUSR1 (dump) signals.
// It also starts a background ticker for periodic secret reloading if enabled.
// It returns a channel that will receive reload errors for logging by the caller.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.configSignalChan, syscall.SIGHUP, syscall.SIGUSR1)

	if l.cfg.SecretStorage.Enabled && l.cfg.SecretStorage.PollInterval > 0 {
		l.ticker = time.NewTicker(l.cfg.SecretStorage.PollInterval)
	}

	go func() {
		defer signal.Stop(l.configSignalChan)
		defer close(l.reloadErrors)

		if l.ticker != nil {
			defer l.ticker.Stop()
		}

		var reloadTickerChan <-chan time.Time
		if l.ticker != nil {
			reloadTickerChan = l.ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-reloadTickerChan:
				l.handleConfigReload(ctx)

			case sig := <-l.configSignalChan:
				switch sig {
				case syscall.SIGHUP:
					l.handleConfigReload(ctx)

				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()

	return l.reloadErrors
}

// DumpConfig outputs the current configuration and queue definitions as JSON.
func (l *Loader) DumpConfig() {
	l.mu.RLock()
	dump := struct {
		Service *ServiceConfig    `json:"service"`
		Queues  []QueueDefinition `json:"queues"`
	}{
		Service: l.cfg,
		Queues:  l.queues,
	}
	configJSON, err := json.MarshalIndent(dump, "", "  ")
	l.mu.RUnlock()

	if err != nil {
		fmt.Fprintf(l.out, "Error marshaling config: %v\n", err)

		return
	}

	fmt.Fprintf(l.out, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", string(configJSON))
}

// Load broker credentials from the secrets' repository.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretStorage.Enabled {
		return 0, fmt.Errorf("secret storage is not enabled")
	}

	if l.secretsRepo == nil {
		return 0, fmt.Errorf("secret storage is enabled without a secrets repository")
	}

	if err := l.authenticateVault(ctx, l.cfg.SecretStorage); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	data, err := l.loadSecretsFromPath(ctx, "data")
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	l.applySecretsToConfig(data)

	metadata, err := l.loadSecretsFromPath(ctx, "metadata")
	if err != nil {
		return 0, fmt.Errorf("failed to load secret metadata: %w", err)
	}

	version, err := getSecretVersion(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	l.lastVersion = version

	return version, nil
}

// Init config from environment variables.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.AppConfig.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.AppConfig.CommitSHA = CommitSHA
	}

	return cfg, nil
}

func (l *Loader) authenticateVault(ctx context.Context, config SecretStorageConfig) error {
	switch strings.ToLower(config.AuthMethod) {
	case "token":
		if config.Token == "" {
			return fmt.Errorf("token is required for token auth method")
		}
		l.secretsRepo.SetToken(config.Token)
		return nil

	case "approle":
		if config.RoleID == "" || config.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth method")
		}

		data := map[string]any{
			"role_id":   config.RoleID,
			"secret_id": config.SecretID,
		}

		resp, err := l.secretsRepo.WriteWithContext(ctx, "auth/approle/login", data)
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("no auth info returned from Vault")
		}

		l.secretsRepo.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", config.AuthMethod)
	}
}

func (l *Loader) handleConfigReload(ctx context.Context) {
	if err := l.LoadQueues(); err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to reload queue definitions: %w", err))

		return
	}

	if !l.cfg.SecretStorage.Enabled {
		l.reportReloadStatus(nil)

		return
	}

	metadata, err := l.loadSecretsFromPath(ctx, "metadata")
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to load secret metadata: %w", err))

		return
	}

	currentVersion, err := getSecretVersion(metadata)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to get secret version: %w", err))

		return
	}

	if currentVersion != l.lastVersion {
		if _, err := l.Load(ctx); err != nil {
			l.reportReloadStatus(err)

			return
		}
	}

	l.reportReloadStatus(nil)
}

func (l *Loader) getSecretsWithRetry(ctx context.Context, path string) (*api.Secret, error) {
	cfg := l.cfg.SecretStorage

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var (
		secret *api.Secret
		err    error
	)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		secret, err = l.secretsRepo.GetSecrets(ctx, path)
		if err == nil {
			break
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to read from path %s: %w", path, ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read from path %s after %d retries: %w", path, cfg.MaxRetries, err)
	}

	return secret, nil
}

func getSecretVersion(metadata map[string]any) (uint, error) {
	if metadata == nil {
		return 0, nil
	}

	currentVersion, ok := metadata["current_version"]
	if !ok {
		return 0, nil
	}

	switch v := currentVersion.(type) {
	case float64:
		return uint(v), nil
	case uint:
		return v, nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(version), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", currentVersion)
	}
}

// loadSecretsFromPath reads the KV v2 secret and returns its "data" or "metadata" section.
func (l *Loader) loadSecretsFromPath(ctx context.Context, pathType string) (map[string]any, error) {
	mountPath := l.cfg.SecretStorage.MountPath

	secret, err := l.getSecretsWithRetry(ctx, fmt.Sprintf("apps/data/%s", mountPath))
	if err != nil {
		return nil, err
	}

	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	result, ok := secret.Data[pathType].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid secret format at path apps/data/%s, missing '%s' key", mountPath, pathType)
	}

	return result, nil
}

func (l *Loader) applySecretsToConfig(data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, value := range data {
		strValue, ok := value.(string)
		if !ok || strValue == "" {
			continue
		}

		switch key {
		case "STOMP_LOGIN":
			l.cfg.Stomp.Login = strValue
		case "STOMP_PASSCODE":
			l.cfg.Stomp.Passcode = strValue
		case "WEBHOOK_URL":
			l.cfg.Workers.Webhook.URL = strValue
		}
	}
}

// reportReloadStatus sends reload status (error or nil for success) to reloadErrors channel.
// It uses non-blocking send to avoid blocking if no receiver is ready.
func (l *Loader) reportReloadStatus(err error) {
	select {
	case l.reloadErrors <- err:
	default:
	}
}
