package config

import (
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

const (
	WorkerLog     = "log"
	WorkerDiscard = "discard"
	WorkerWebhook = "webhook"
)

type (
	ServiceConfig struct {
		AppConfig     AppConfig           `json:"app_config"`
		Logging       LoggingConfig       `json:"logging"`
		Telemetry     Telemetry           `json:"telemetry"`
		SecretStorage SecretStorageConfig `json:"secret_storage"`
		HTTPServer    HTTPServerConfig    `json:"http_server"`
		Stomp         StompConfig         `json:"stomp"`
		Consumer      ConsumerConfig      `json:"consumer"`
		Backoff       BackoffConfig       `json:"backoff"`
		Workers       WorkersConfig       `json:"workers"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"svc-stomp-worker" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"unknown" json:"env"`
	}

	LoggingConfig struct {
		Level  string `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format string `envconfig:"LOGGING_FORMAT" default:"json" json:"format"`
		// QueueLevel is the minimum severity of the queue and consumer log entries.
		QueueLevel string          `envconfig:"LOGGING_QUEUE_LEVEL" default:"warn" json:"queue_level"`
		AccessLog  AccessLogConfig `json:"access_log"`
	}

	AccessLogConfig struct {
		Enabled         bool `envconfig:"LOGGING_ACCESS_LOG_ENABLED" default:"false" json:"enabled"`
		LogHealthChecks bool `envconfig:"LOGGING_ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
	}

	Telemetry struct {
		ExporterType string `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`

		OtelGRPCHost string `envconfig:"OTEL_HOST" json:"otel_grpc_host"`
		OtelGRPCPort string `envconfig:"OTEL_PORT" default:"4317" json:"otel_grpc_port"`

		Metrics Metrics `json:"metrics"`
		Traces  Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1" json:"sampler_ratio"`
	}

	SecretStorageConfig struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"" json:"-"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"-"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"svc-stomp-worker" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    int           `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	// HTTPServerConfig configures the telemetry endpoint serving health and metrics.
	HTTPServerConfig struct {
		Enabled         bool          `envconfig:"HTTP_SERVER_ENABLED" default:"true" json:"enabled"`
		Port            int           `envconfig:"HTTP_SERVER_PORT" default:"8088" json:"port"`
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		ReadTimeout     time.Duration `envconfig:"HTTP_SERVER_READ_TIMEOUT" default:"30s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_SERVER_WRITE_TIMEOUT" default:"30s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_SERVER_IDLE_TIMEOUT" default:"120s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SERVER_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	StompConfig struct {
		// ConfigFile lists the queues, YAML or TOML by extension.
		ConfigFile string `envconfig:"STOMP_CONFIG_FILE" default:"queues.yaml" json:"config_file"`
		// DefaultQueueFallback resolves unknown queue names to the first configured queue.
		DefaultQueueFallback bool `envconfig:"STOMP_DEFAULT_QUEUE_FALLBACK" default:"false" json:"default_queue_fallback"`
		// Login and Passcode are used by queues that do not declare their own credentials.
		Login          string               `envconfig:"STOMP_LOGIN" default:"" json:"login,omitempty"`
		Passcode       string               `envconfig:"STOMP_PASSCODE" default:"" json:"-"`
		CircuitBreaker CircuitBreakerConfig `envconfig:"STOMP_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}

	ConsumerConfig struct {
		ReadInterval time.Duration `envconfig:"CONSUMER_READ_INTERVAL" default:"500ms" json:"read_interval"`
		LeaseTime    time.Duration `envconfig:"CONSUMER_LEASE_TIME" default:"1h" json:"lease_time"`
		ItemsLimit   int           `envconfig:"CONSUMER_ITEMS_LIMIT" default:"0" json:"items_limit"`
		// MaxTransportErrors stops a worker after that many consecutive failed reads, 0 retries forever.
		MaxTransportErrors int `envconfig:"CONSUMER_MAX_TRANSPORT_ERRORS" default:"0" json:"max_transport_errors"`
		// ShutdownTimeout bounds how long the item in progress may run after a shutdown signal.
		ShutdownTimeout time.Duration `envconfig:"CONSUMER_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	BackoffConfig struct {
		// BaseDelay is the amount of time to backoff after the first failure.
		BaseDelay time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		// Multiplier is the factor with which to multiply backoffs after a
		// failed retry. Should ideally be greater than 1.
		Multiplier float64 `envconfig:"BACKOFF_MULTIPLIER" default:"1.6" json:"multiplier"`
		// Jitter is the factor with which backoffs are randomized.
		Jitter float64 `envconfig:"BACKOFF_JITTER" default:"0.2" json:"jitter"`
		// MaxDelay is the upper bound of backoff delay.
		MaxDelay time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"30s" json:"max_delay"`
	}

	CircuitBreakerConfig struct {
		MaxRequests uint32        `envconfig:"MAX_REQUESTS" default:"1" json:"max_requests"`
		MaxFailures uint32        `envconfig:"MAX_FAILURES" default:"5" json:"max_failures"`
		Interval    time.Duration `envconfig:"INTERVAL" default:"0s" json:"interval"`
		Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s" json:"timeout"`
	}

	WorkersConfig struct {
		// Bindings maps queue names to worker kinds, e.g. "default:log,events:webhook".
		Bindings map[string]string `envconfig:"WORKER_BINDINGS" default:"default:log" json:"bindings"`
		Webhook  WebhookConfig     `json:"webhook"`
	}

	WebhookConfig struct {
		URL              string               `envconfig:"WEBHOOK_URL" default:"" json:"url"`
		Timeout          time.Duration        `envconfig:"WEBHOOK_TIMEOUT" default:"10s" json:"timeout"`
		MaxRetries       int                  `envconfig:"WEBHOOK_MAX_RETRIES" default:"2" json:"max_retries"`
		RetryWaitTime    time.Duration        `envconfig:"WEBHOOK_RETRY_WAIT_TIME" default:"500ms" json:"retry_wait_time"`
		MaxRetryWaitTime time.Duration        `envconfig:"WEBHOOK_MAX_RETRY_WAIT_TIME" default:"2s" json:"max_retry_wait_time"`
		UserAgent        string               `envconfig:"WEBHOOK_USER_AGENT" default:"StompWorker/1.0" json:"user_agent"`
		CircuitBreaker   CircuitBreakerConfig `envconfig:"WEBHOOK_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}
)
