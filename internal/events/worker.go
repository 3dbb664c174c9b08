package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"stategraph/internal/core/branch"
	"stategraph/internal/platform/kafka"
)

// Worker applies branch change events from other process instances by
// reloading the local registry cache from the store. Reloads are
// idempotent, so events from this instance's own writes are harmless.
type Worker struct {
	registry *branch.Registry
	logger   *slog.Logger
}

func NewWorker(registry *branch.Registry, logger *slog.Logger) *Worker {
	return &Worker{registry: registry, logger: logger}
}

func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn("malformed event skipped", "topic", msg.Topic, "error", err)
		return nil
	}

	switch event.Type {
	case TypeBranchCreated, TypeSchemaUpdated:
		w.logger.Info("branch change event received", "type", event.Type, "branch", event.Branch)
		return w.registry.Load(ctx)
	default:
		w.logger.Warn("unknown event type skipped", "type", event.Type)
		return nil
	}
}
