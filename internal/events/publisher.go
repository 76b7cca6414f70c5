package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher fans domain events out over redis pub/sub. Publishing is
// best-effort: a failed publish is logged and never propagated into the
// transition or ledger path that produced the event.
type Publisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewPublisher(client *redis.Client, log *zap.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

func (p *Publisher) StatusChanged(ctx context.Context, e StatusChanged) {
	p.publish(ctx, ChannelStatusChanged, e)
}

func (p *Publisher) LedgerPosted(ctx context.Context, e LedgerPosted) {
	p.publish(ctx, ChannelLedgerPosted, e)
}

func (p *Publisher) publish(ctx context.Context, channel string, payload any) {
	if p == nil || p.client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal event", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.log.Warn("publish event", zap.String("channel", channel), zap.Error(err))
	}
}

// Subscribe returns a redis subscription for a channel. Exposed for
// collaborators (and tests) that consume the stream in-process.
func (p *Publisher) Subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	if p.client == nil {
		return nil, fmt.Errorf("events: no redis client configured")
	}
	return p.client.Subscribe(ctx, channel), nil
}
