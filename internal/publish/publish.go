// Package publish sends hunt reports to a Kafka topic.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/cubny/hotspot/internal/report"
)

// Publisher writes reports to one topic through a synchronous producer
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewConfig returns the producer settings used by NewPublisher
func NewConfig(timeout time.Duration) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = "hotspot"
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 5
	c.Producer.Retry.Backoff = 100 * time.Millisecond
	c.Producer.Return.Successes = true
	c.Net.DialTimeout = timeout
	c.Net.ReadTimeout = timeout
	c.Net.WriteTimeout = timeout
	return c
}

// NewPublisher connects to the brokers
func NewPublisher(brokers []string, topic string, timeout time.Duration) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}
	return NewPublisherFromProducer(producer, topic), nil
}

func NewPublisherFromProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish sends the report as JSON keyed by the hotspot geohash and returns its partition and offset
func (p *Publisher) Publish(r report.Report) (int32, int64, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to encode report: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(r.Geohash),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("policy"), Value: []byte(r.Policy)},
		},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to send report to topic %s: %w", p.topic, err)
	}
	return partition, offset, nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
