package events

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// KafkaPublisher writes events to one topic keyed by entity id, so every
// change to the same table, order or invoice lands on the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = 5 * time.Second
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// DialKafka starts a sync producer against brokers.
func DialKafka(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("start kafka producer: %w", err)
	}
	return NewKafkaPublisher(producer, topic), nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish blocks until the broker acknowledges. The context is not consulted:
// sarama's sync producer has its own timeout.
func (p *KafkaPublisher) Publish(_ context.Context, ev Event) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(ev.Key),
		Value:     sarama.ByteEncoder(body),
		Timestamp: ev.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", ev.Type, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
