package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPRelay shares events through a RabbitMQ fanout exchange. Every instance
// binds its own exclusive queue, so each one receives every message.
type AMQPRelay struct {
	hub      *Hub
	origin   string
	url      string
	exchange string
	log      *slog.Logger

	mu    sync.Mutex
	conn  *amqp.Connection
	pubCh *amqp.Channel
	acks  <-chan amqp.Confirmation
}

func NewAMQPRelay(hub *Hub, url, exchange, origin string, log *slog.Logger) *AMQPRelay {
	return &AMQPRelay{
		hub:      hub,
		origin:   origin,
		url:      url,
		exchange: exchange,
		log:      log.With("relay", "amqp", "exchange", exchange),
	}
}

// connect dials the broker and prepares the publishing channel with
// publisher confirms. Callers hold r.mu.
func (r *AMQPRelay) connect() error {
	if r.conn != nil && !r.conn.IsClosed() {
		return nil
	}
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(r.exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return err
	}
	r.conn = conn
	r.pubCh = ch
	r.acks = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return nil
}

func (r *AMQPRelay) Publish(ctx context.Context, evs ...Event) error {
	body, err := encodeEnvelope(Envelope{Origin: r.origin, Events: evs})
	if err != nil {
		return fmt.Errorf("amqp: encode events: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.connect(); err != nil {
		return fmt.Errorf("amqp: connect: %w", err)
	}
	if err := r.pubCh.PublishWithContext(ctx, r.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		AppId:        r.origin,
		Body:         body,
	}); err != nil {
		r.dropLocked()
		return fmt.Errorf("amqp: publish: %w", err)
	}

	select {
	case c, ok := <-r.acks:
		if !ok {
			r.dropLocked()
			return errors.New("amqp: channel closed before confirm")
		}
		if !c.Ack {
			return errors.New("amqp: broker nacked publish")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return errors.New("amqp: confirm timeout")
	}
}

func (r *AMQPRelay) Run(ctx context.Context) error {
	keepAlive(ctx, r.hub, r.log, wait, r.consume)
	return nil
}

func (r *AMQPRelay) consume(ctx context.Context, healthy func()) error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(r.exchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.Name, "coordinator-"+r.origin, true, true, false, false, nil)
	if err != nil {
		return err
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-closed:
			if e == nil {
				return errors.New("connection closed")
			}
			return e
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			healthy()
			if d.AppId == r.origin {
				continue
			}
			env, err := decodeEnvelope(d.Body)
			if err != nil {
				r.log.Warn("relay_decode_error", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			if err := r.hub.Publish(ctx, env.Events...); err != nil {
				return err
			}
		}
	}
}

// dropLocked forgets the publishing connection so the next Publish dials
// again. Callers hold r.mu.
func (r *AMQPRelay) dropLocked() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn, r.pubCh, r.acks = nil, nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropLocked()
}
