package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaRelay shares events through one Kafka topic. Messages are keyed by
// document id so every document keeps its order within a partition. Each
// instance reads the topic in its own consumer group and sees every message.
type KafkaRelay struct {
	hub     *Hub
	origin  string
	brokers []string
	topic   string
	writer  *kafka.Writer
	log     *slog.Logger
}

func NewKafkaRelay(hub *Hub, brokers []string, topic, origin string, log *slog.Logger) *KafkaRelay {
	return &KafkaRelay{
		hub:     hub,
		origin:  origin,
		brokers: brokers,
		topic:   topic,
		log:     log.With("relay", "kafka", "topic", topic),
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (r *KafkaRelay) Publish(ctx context.Context, evs ...Event) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		data, err := encodeEnvelope(Envelope{Origin: r.origin, Events: []Event{ev}})
		if err != nil {
			return fmt.Errorf("kafka: encode event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.RestaurantID + "/" + ev.ID), Value: data})
	}
	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

func (r *KafkaRelay) Run(ctx context.Context) error {
	keepAlive(ctx, r.hub, r.log, wait, r.consume)
	return nil
}

func (r *KafkaRelay) consume(ctx context.Context, healthy func()) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     r.brokers,
		Topic:       r.topic,
		GroupID:     "coordinator-" + r.origin,
		StartOffset: kafka.LastOffset,
		MaxWait:     250 * time.Millisecond,
	})
	defer reader.Close()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			return err
		}
		healthy()
		env, err := decodeEnvelope(m.Value)
		if err != nil {
			r.log.Warn("relay_decode_error", "offset", m.Offset, "error", err)
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

func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}
