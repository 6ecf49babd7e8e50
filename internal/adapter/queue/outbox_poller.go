package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
)

type Publisher interface {
	PublishEvent(ctx context.Context, routingKey string, body []byte) error
}

// OutboxPoller drains PENDING outbox rows to the broker. Publish-then-mark
// gives at-least-once delivery; consumers handle duplicates.
type OutboxPoller struct {
	repo      usecase.OutboxRepo
	publisher Publisher
	tick      time.Duration
	batchSize int
	log       *slog.Logger
}

func NewOutboxPoller(repo usecase.OutboxRepo, publisher Publisher, tick time.Duration, log *slog.Logger) *OutboxPoller {
	if tick <= 0 {
		tick = time.Second
	}
	return &OutboxPoller{repo: repo, publisher: publisher, tick: tick, batchSize: 100, log: log}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) drain(ctx context.Context) {
	events, err := p.repo.FetchPending(ctx, p.batchSize)
	if err != nil {
		p.log.Error("outbox fetch failed", "err", err)
		return
	}
	for _, ev := range events {
		if err := p.publisher.PublishEvent(ctx, ev.Channel, ev.Payload); err != nil {
			p.log.Error("outbox publish failed", "id", ev.ID, "channel", ev.Channel, "err", err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, ev.ID); err != nil {
			p.log.Error("outbox mark failed", "id", ev.ID, "err", err)
		}
	}
}
