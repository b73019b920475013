package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storekit/wa-bridge/internal/util"
)

// Publisher fans domain events out to external collaborators. Publishing is
// best-effort from the pipeline's point of view: the durable webhook-event
// row, not the broker, is the source of truth for replay.
type Publisher interface {
	Publish(ctx context.Context, topic, kind string, payload any) error
	Close() error
}

// KafkaPublisher writes envelopes with kafka-go, one writer for all topics.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	env := Envelope{
		ID:         util.NewID(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(env.ID),
		Value: b,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NopPublisher is used when no brokers are configured; the core degrades to
// in-process side effects only.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }
func (NopPublisher) Close() error                                       { return nil }
