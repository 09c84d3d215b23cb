package live

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alertx/alertx/internal/infrastructure/redis"
)

const updatesChannel = "alertx:report-updates"

// RedisBridge relays live events through Redis pub/sub so dashboards
// connected to any replica see updates from every replica. Redis delivers a
// published message back to the publishing subscriber too, so each replica
// delivers exactly once locally.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

// NewRedisBridge attaches the hub to the Redis relay
func NewRedisBridge(client *redis.Client, hub *Hub, logger *slog.Logger) *RedisBridge {
	if logger == nil {
		logger = slog.Default()
	}

	b := &RedisBridge{
		client: client,
		hub:    hub,
		logger: logger,
	}
	hub.SetPublisher(b.publish)
	return b
}

func (b *RedisBridge) publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(context.Background(), updatesChannel, payload)
}

// Run consumes the relay channel until ctx is cancelled, delivering each
// message to the local hub
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, updatesChannel)
	defer sub.Close()

	b.logger.Info("live-update relay started", slog.String("channel", updatesChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("live-update relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("live-update relay channel closed")
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Error("failed to decode relayed event", slog.String("error", err.Error()))
				continue
			}
			b.hub.Deliver(ev)
		}
	}
}
