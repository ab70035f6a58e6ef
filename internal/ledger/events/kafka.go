package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces events to a topic keyed by public key, so all
// events of one identity land on one partition in order.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*kafkaSettings)

type kafkaSettings struct {
	partitions  int32
	replication int16
	timeout     time.Duration
	logger      *slog.Logger
}

func WithTopicLayout(partitions int32, replication int16) KafkaOption {
	return func(s *kafkaSettings) {
		s.partitions = partitions
		s.replication = replication
	}
}

// WithProduceTimeout bounds how long one Publish waits for the broker.
func WithProduceTimeout(d time.Duration) KafkaOption {
	return func(s *kafkaSettings) {
		s.timeout = d
	}
}

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(s *kafkaSettings) {
		s.logger = logger
	}
}

// NewKafkaPublisher connects to brokers and makes sure topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	settings := kafkaSettings{partitions: 3, replication: 1, timeout: 5 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(&settings)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(settings.timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	if err := EnsureTopic(ctx, kadm.NewClient(client), topic, settings.partitions, settings.replication); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaPublisher{
		client:  client,
		topic:   topic,
		timeout: settings.timeout,
		logger:  settings.logger,
		now:     time.Now,
	}, nil
}

// EnsureTopic creates topic unless it already exists.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32, replication int16) error {
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("creating topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("creating topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.PublicKey.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("producing %s event: %w", e.Kind, err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka flush failed", "error", err)
	}
	p.client.Close()
}
