package events

import (
	"encoding/json"
	"fmt"
	"time"

	"goeventcity/internal/config"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// KafkaForwarder republishes bus events to a Kafka topic, keyed by booking
// reference so that one booking's events stay on one partition.
type KafkaForwarder struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zerolog.Logger
}

// NewKafkaForwarder connects a sync producer to the configured brokers.
func NewKafkaForwarder(cfg config.KafkaConfig, logger *zerolog.Logger) (*KafkaForwarder, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	if cfg.ClientID != "" {
		saramaConfig.ClientID = cfg.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewKafkaForwarderWithProducer(producer, cfg.Topic, logger), nil
}

func NewKafkaForwarderWithProducer(producer sarama.SyncProducer, topic string, logger *zerolog.Logger) *KafkaForwarder {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &KafkaForwarder{producer: producer, topic: topic, logger: logger}
}

// Attach subscribes the forwarder to every booking event on the bus.
func (f *KafkaForwarder) Attach(bus *EventBus) {
	for _, eventType := range BookingEventTypes {
		bus.Subscribe(eventType, f.Forward)
	}
}

// Forward sends one event. Failures are logged and returned; the bus ignores
// them so that a broker outage never blocks a booking.
func (f *KafkaForwarder) Forward(event *Event) error {
	var key struct {
		Reference string `json:"reference"`
	}
	_ = json.Unmarshal(event.Payload, &key)

	msg := &sarama.ProducerMessage{
		Topic:     f.topic,
		Value:     sarama.ByteEncoder(event.Payload),
		Timestamp: event.CreatedAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}
	if key.Reference != "" {
		msg.Key = sarama.StringEncoder(key.Reference)
	}

	partition, offset, err := f.producer.SendMessage(msg)
	if err != nil {
		f.logger.Error().Err(err).Str("event", event.Type).Str("reference", key.Reference).Msg("Failed to forward event to Kafka")
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}

	f.logger.Debug().
		Str("event", event.Type).
		Str("reference", key.Reference).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event forwarded to Kafka")
	return nil
}

func (f *KafkaForwarder) Close() error {
	return f.producer.Close()
}
