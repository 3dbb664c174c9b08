package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"stategraph/internal/core/branch"
	"stategraph/internal/platform/kafka"
)

// Publisher emits branch change events to the bus. It implements
// branch.Notifier; publish failures are reported to the caller, which logs
// and continues — the local cache is already consistent.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewPublisher(producer *kafka.Producer, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

func (p *Publisher) BranchCreated(ctx context.Context, b branch.Branch) error {
	return p.publish(ctx, Event{
		Type:       TypeBranchCreated,
		Branch:     b.Name,
		SchemaHash: b.SchemaHash,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) SchemaUpdated(ctx context.Context, branchName, hash string) error {
	return p.publish(ctx, Event{
		Type:       TypeSchemaUpdated,
		Branch:     branchName,
		SchemaHash: hash,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.producer.Produce(ctx, Topic, []byte(event.Branch), payload); err != nil {
		return err
	}
	p.logger.Debug("event published", "type", event.Type, "branch", event.Branch)
	return nil
}
