// Package notify forwards acknowledged call status events to a broker.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"call-gateway/internal/calls"
	"call-gateway/internal/config"
	"call-gateway/pkg/utils"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the sink selected by cfg.Sink. With SinkNone it returns a nil sink, which
// StatusService treats as log-only.
func Open(ctx context.Context, cfg config.NotifyConfig, log *slog.Logger) (calls.EventSink, io.Closer, error) {
	switch cfg.Sink {
	case "", config.SinkNone:
		return nil, nopCloser{}, nil
	case config.SinkAMQP:
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case config.SinkRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, nil, err
		}
		p := NewRedisPublisher(rdb, cfg.RedisChannel, log)
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("notify: unknown sink %q", cfg.Sink)
	}
}
