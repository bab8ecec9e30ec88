// Package events is the transactional outbox: registries append events in
// the same transaction scope as their writes, and a background worker drains
// the outbox to Kafka for downstream notification and task generation.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"stevedore/internal/events/models"
)

// Topic carries every outbox event; consumers route on the kind header.
const Topic = "stevedore.events"

// Publisher delivers drained outbox events to the broker.
type Publisher interface {
	Publish(ctx context.Context, events []models.Event) error
	Close()
}

// KafkaPublisher produces outbox events keyed by shipment id, so all events
// for one shipment land on one partition in order.
type KafkaPublisher struct {
	client *kgo.Client
}

func NewKafkaPublisher(ctx context.Context, brokers []string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaPublisher{client: client}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, Topic)
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []models.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		records = append(records, &kgo.Record{
			Key:   []byte(e.ShipmentID.String()),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "kind", Value: []byte(e.Kind)},
				{Key: "event_id", Value: []byte(e.ID.String())},
			},
		})
	}
	return p.client.ProduceSync(ctx, records...).FirstErr()
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
