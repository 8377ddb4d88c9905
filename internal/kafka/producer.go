package kafka

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// flushTimeoutMs bounds how long Close waits for queued readings and events
const flushTimeoutMs = 5000

// Producer sends JSON messages and counts the ones the brokers never acknowledged
type Producer struct {
	producer *kafka.Producer
	logger   *utils.Logger
	failures atomic.Int64
}

// NewProducer creates an idempotent producer. Meter readings arrive in bursts,
// so sends are batched for a few milliseconds.
func NewProducer(cfg *config.KafkaConfig, clientID string, logger *utils.Logger) (*Producer, error) {
	kafkaLogger := logger.Named("kafka_producer").With(zap.String("client_id", clientID))

	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"client.id":          clientID,
		"acks":               "all",
		"enable.idempotence": true,
		"linger.ms":          20,
		"compression.type":   "lz4",
	}
	if err := applySecurity(kafkaConfig, cfg); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	p := &Producer{producer: producer, logger: kafkaLogger}
	go p.watchDeliveries()
	return p, nil
}

// watchDeliveries drains delivery reports until the producer is closed
func (p *Producer) watchDeliveries() {
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.failures.Add(1)
				p.logger.Error("Message not delivered",
					zap.Stringp("topic", ev.TopicPartition.Topic),
					zap.ByteString("key", ev.Key),
					zap.Error(ev.TopicPartition.Error))
			}
		case kafka.Error:
			p.logger.Warn("Producer error", zap.Error(ev))
		}
	}
}

// Failures returns how many messages were rejected by the brokers
func (p *Producer) Failures() int64 {
	return p.failures.Load()
}

// applySecurity adds SASL_SSL settings when security is enabled
func applySecurity(kafkaConfig *kafka.ConfigMap, cfg *config.KafkaConfig) error {
	if !cfg.SecurityEnable {
		return nil
	}
	settings := map[string]string{
		"security.protocol": "SASL_SSL",
		"sasl.mechanisms":   "PLAIN",
		"sasl.username":     cfg.SecurityUser,
		"sasl.password":     cfg.SecurityPass,
	}
	for key, value := range settings {
		if err := kafkaConfig.SetKey(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// Message represents a message to be sent to Kafka
type Message struct {
	Key       string
	Value     interface{}
	Timestamp time.Time
	Headers   map[string]string
}

// encode turns a Message into a kafka.Message with a JSON value.
// A []byte value is sent as is, which keeps DLQ copies byte-identical.
func encode(topic string, message *Message) (*kafka.Message, error) {
	var valueBytes []byte
	switch v := message.Value.(type) {
	case []byte:
		valueBytes = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message value: %w", err)
		}
		valueBytes = b
	}

	kafkaMessage := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          valueBytes,
		Timestamp:      message.Timestamp,
	}
	if message.Key != "" {
		kafkaMessage.Key = []byte(message.Key)
	}
	if len(message.Headers) > 0 {
		kafkaMessage.Headers = make([]kafka.Header, 0, len(message.Headers))
		for k, v := range message.Headers {
			kafkaMessage.Headers = append(kafkaMessage.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return kafkaMessage, nil
}

// Produce sends a message to a Kafka topic without waiting for delivery
func (p *Producer) Produce(topic string, message *Message) error {
	kafkaMessage, err := encode(topic, message)
	if err != nil {
		return err
	}

	if err := p.producer.Produce(kafkaMessage, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Close flushes queued messages and closes the producer
func (p *Producer) Close() {
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		p.logger.Warn("Messages still queued at close", zap.Int("remaining", remaining))
	}
	p.producer.Close()
	p.logger.Info("Kafka producer closed", zap.Int64("delivery_failures", p.Failures()))
}
