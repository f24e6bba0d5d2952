package infrastructure

import (
	"context"
	"net/http"
	"time"
)

type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordItemClaimed(_ context.Context, _ string) {
}

func (n *NoOpMetrics) RecordItemProcessed(_ context.Context, _, _ string, _ time.Duration) {
}

func (n *NoOpMetrics) RecordItemCreated(_ context.Context, _ string, _ bool) {
}

func (n *NoOpMetrics) RecordTransportError(_ context.Context, _, _ string) {
}

func (n *NoOpMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (n *NoOpMetrics) Shutdown(_ context.Context) error {
	return nil
}
