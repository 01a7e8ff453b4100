package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"call-gateway/internal/calls"
	"call-gateway/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const dedupeTTL = 24 * time.Hour

// RedisPublisher forwards status events on a pub/sub channel. A callback Exotel retries
// for the same call and status is published once.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *slog.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel, log: log}
}

func dedupeKey(channel string, e calls.StatusEvent) string {
	return channel + ":seen:" + e.CallSid + ":" + string(e.NormalizedStatus())
}

func (p *RedisPublisher) Publish(ctx context.Context, e calls.StatusEvent) error {
	var key string
	if e.CallSid != "" {
		key = dedupeKey(p.channel, e)
		first, err := utils.MarkOnce(ctx, p.rdb, key, dedupeTTL)
		if err != nil {
			return err
		}
		if !first {
			p.log.Debug("duplicate status event skipped", "call_sid", e.CallSid)
			return nil
		}
	}

	if err := p.publish(ctx, e); err != nil {
		if key != "" {
			p.unmark(ctx, key)
		}
		return err
	}
	p.log.Info("published", slog.String("channel", p.channel), slog.String("key", routingKey(e)))
	return nil
}

func (p *RedisPublisher) publish(ctx context.Context, e calls.StatusEvent) error {
	body, err := json.Marshal(newStatusEnvelope(e, time.Now()))
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, body).Err()
}

// unmark releases the dedupe key so the provider's retry of this callback is published.
func (p *RedisPublisher) unmark(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.rdb.Del(ctx, key).Err(); err != nil {
		p.log.Warn("dedupe key release failed", "key", key, "err", err)
	}
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
