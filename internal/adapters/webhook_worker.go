package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-stomp-worker/internal/config"
	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/internal/infrastructure"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	defaultUserAgent      = "StompWorker/1.0"

	HeaderQueueName = "X-Queue-Name"
)

var (
	ErrInvalidWebhookURL = errors.New("invalid webhook URL")
	ErrWebhookRejected   = errors.New("webhook rejected item")
	ErrWebhookFailed     = errors.New("webhook failed")
)

type (
	// WebhookWorker forwards queue items to an HTTP endpoint.
	WebhookWorker struct {
		queueName      string
		targetURL      string
		client         *resty.Client
		circuitBreaker *gobreaker.CircuitBreaker
		logger         infrastructure.Logger
	}

	webhookPayload struct {
		Queue string `json:"queue"`
		Data  any    `json:"data"`
	}
)

func NewWebhookWorker(queueName string, cfg config.WebhookConfig, logger infrastructure.Logger) (*WebhookWorker, error) {
	if err := validateURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhookURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	client := resty.New()

	client.SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.MaxRetryWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client.SetHeaders(map[string]string{
		"User-Agent":    userAgent,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		HeaderQueueName: queueName,
	})

	cbSettings := infrastructure.BreakerSettings("webhook-"+queueName, cfg.CircuitBreaker, logger)

	return &WebhookWorker{
		queueName:      queueName,
		targetURL:      cfg.URL,
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
	}, nil
}

// ProcessItem posts the item. Server and network failures requeue the item, an open
// circuit suspends the queue and any other non-success status is returned as is.
func (w *WebhookWorker) ProcessItem(ctx context.Context, data any) error {
	result, err := w.circuitBreaker.Execute(func() (any, error) {
		return w.post(ctx, data)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			w.logger.Warn().
				Str("queue", w.queueName).
				Str("url", w.targetURL).
				Msg("circuit breaker is open")

			return consumer.Suspend(fmt.Errorf("%w: %w", ErrWebhookFailed, err))
		}

		return consumer.Requeue(err)
	}

	resp := result.(*resty.Response)
	if resp.IsError() {
		w.logger.Warn().
			Str("queue", w.queueName).
			Str("url", w.targetURL).
			Int("status_code", resp.StatusCode()).
			Msg("webhook rejected item")

		return fmt.Errorf("%w: HTTP %d", ErrWebhookRejected, resp.StatusCode())
	}

	return nil
}

// post returns an error only for failures that count against the circuit breaker.
func (w *WebhookWorker) post(ctx context.Context, data any) (*resty.Response, error) {
	startTime := time.Now()

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{Queue: w.queueName, Data: data}).
		Post(w.targetURL)

	if err != nil {
		w.logger.Error().
			Err(err).
			Str("queue", w.queueName).
			Str("url", w.targetURL).
			Msg("failed to deliver item to webhook")

		return nil, fmt.Errorf("%w: %w", ErrWebhookFailed, err)
	}

	w.logger.Debug().
		Str("queue", w.queueName).
		Str("url", w.targetURL).
		Int("status_code", resp.StatusCode()).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Msg("webhook request completed")

	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: HTTP %d", ErrWebhookFailed, resp.StatusCode())
	}

	return resp, nil
}

func validateURL(targetURL string) error {
	if targetURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}
