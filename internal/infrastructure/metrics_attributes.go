package infrastructure

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	queueKey     = "queue.name"
	outcomeKey   = "item.outcome"
	statusKey    = "status"
	operationKey = "operation"
)

func QueueAttr(name string) attribute.KeyValue {
	return attribute.String(queueKey, name)
}

func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(outcomeKey, outcome)
}

func StatusAttr(status string) attribute.KeyValue {
	return attribute.String(statusKey, status)
}

func OperationAttr(operation string) attribute.KeyValue {
	return attribute.String(operationKey, operation)
}
