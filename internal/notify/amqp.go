package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"call-gateway/internal/calls"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher forwards status events to a durable topic exchange with publisher confirms.
// A connection lost to a broker restart is redialled on the next publish.
type AMQPPublisher struct {
	url      string
	exchange string
	log      *slog.Logger
	dial     func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPPublisher(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, log: log, dial: amqp.Dial}
	conn, err := p.connect()
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// connect dials and declares the exchange.
func (p *AMQPPublisher) connect() (*amqp.Connection, error) {
	conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("notify: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: declare exchange %q: %w", p.exchange, err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			p.log.Warn("amqp connection closed, will redial on next publish", slog.Any("error", err))
		}
	}()
	return conn, nil
}

// channel opens a channel, redialling first when the connection is gone.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.connect()
		if err != nil {
			return nil, err
		}
		if p.conn != nil {
			p.log.Info("amqp reconnected", slog.String("exchange", p.exchange))
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		// Forget the connection so the next publish redials.
		_ = p.conn.Close()
		p.conn = nil
		return nil, err
	}
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e calls.StatusEvent) error {
	env := newStatusEnvelope(e, time.Now())
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.Confirm(false); err != nil {
		return err
	}

	cid := env.Meta.ID
	if env.Meta.CorrelationID != nil {
		cid = *env.Meta.CorrelationID
	}
	key := routingKey(e)

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: cid,
		Timestamp:     env.Meta.Time,
		Type:          env.Meta.Type,
		Body:          body,
	})
	if err != nil {
		return err
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("notify: broker nacked %s", key)
	}
	p.log.Info("published", slog.String("key", key), slog.String("exchange", p.exchange))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
