package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// pollTimeout is how long one poll waits for a message before checking for shutdown
const pollTimeout = 100 * time.Millisecond

// MessageHandler processes one message of a subscribed topic
type MessageHandler func(msg *kafka.Message) error

// dlqSender is the producer side of the dead letter queue
type dlqSender interface {
	Produce(topic string, message *Message) error
}

// Stats counts what a consumer did with the messages it read
type Stats struct {
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	DeadLettered int64 `json:"dead_lettered"`
}

// Add returns the sum of two counters
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Processed:    s.Processed + o.Processed,
		Failed:       s.Failed + o.Failed,
		DeadLettered: s.DeadLettered + o.DeadLettered,
	}
}

// Consumer reads the topics it has handlers for. A message whose handler fails
// is copied to the topic's dead letter queue and the consumer moves on.
type Consumer struct {
	name     string
	consumer *kafka.Consumer
	logger   *utils.Logger
	handlers map[string][]MessageHandler
	dlq      dlqSender

	processed    atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewConsumer creates a consumer in cfg.ConsumerGroup. dlq may be nil to drop failed messages.
func NewConsumer(name string, cfg *config.KafkaConfig, logger *utils.Logger, dlq *Producer) (*Consumer, error) {
	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers":       cfg.Brokers,
		"group.id":                cfg.ConsumerGroup,
		"client.id":               name,
		"auto.offset.reset":       "earliest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	}
	if err := applySecurity(kafkaConfig, cfg); err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	c := &Consumer{
		name:     name,
		consumer: consumer,
		logger:   logger.Named("kafka_consumer").With(zap.String("consumer", name)),
		handlers: make(map[string][]MessageHandler),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if dlq != nil {
		c.dlq = dlq
	}
	return c, nil
}

// RegisterHandler adds a handler for topic. Handlers must be registered before Start.
func (c *Consumer) RegisterHandler(topic string, handler MessageHandler) {
	c.handlers[topic] = append(c.handlers[topic], handler)
}

// Topics returns the topics the consumer has handlers for
func (c *Consumer) Topics() []string {
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// Start subscribes to the registered topics and polls until ctx ends or Stop is called
func (c *Consumer) Start(ctx context.Context) error {
	topics := c.Topics()
	if len(topics) == 0 {
		return fmt.Errorf("consumer %s has no topics", c.name)
	}
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("consumer %s is already running", c.name)
	}

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		c.running.Store(false)
		return fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}
	c.logger.Info("Subscribed", zap.Strings("topics", topics))

	go c.poll(ctx)
	return nil
}

func (c *Consumer) poll(ctx context.Context) {
	defer close(c.done)
	defer func() {
		c.running.Store(false)
		_ = c.consumer.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		default:
		}

		msg, err := c.consumer.ReadMessage(pollTimeout)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			c.logger.Error("Failed to read message", zap.Error(err))
			continue
		}

		c.handle(msg)
	}
}

// handle runs every handler of the message topic
func (c *Consumer) handle(msg *kafka.Message) {
	if msg == nil || msg.TopicPartition.Topic == nil {
		return
	}

	topic := *msg.TopicPartition.Topic
	handlers := c.handlers[topic]
	if len(handlers) == 0 {
		c.logger.Warn("No handler for topic", zap.String("topic", topic))
		return
	}

	for _, handler := range handlers {
		if err := handler(msg); err != nil {
			c.failed.Add(1)
			c.logger.Error("Handler rejected message",
				zap.String("topic", topic),
				zap.ByteString("key", msg.Key),
				zap.Int64("offset", int64(msg.TopicPartition.Offset)),
				zap.Error(err))
			c.deadLetter(topic, msg, err)
			continue
		}
		c.processed.Add(1)
	}
}

func (c *Consumer) deadLetter(topic string, msg *kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}

	dlqTopic := DeadLetterTopic(topic)
	err := c.dlq.Produce(dlqTopic, &Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"error":          cause.Error(),
			"original_topic": topic,
			"consumer":       c.name,
		},
	})
	if err != nil {
		c.logger.Error("Failed to dead-letter message", zap.String("dlq_topic", dlqTopic), zap.Error(err))
		return
	}
	c.deadLettered.Add(1)
}

// DeadLetterTopic names the DLQ of a topic
func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}

// Stats returns the consumer's counters
func (c *Consumer) Stats() Stats {
	return Stats{
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		DeadLettered: c.deadLettered.Load(),
	}
}

// Stop ends the poll loop and waits for it to close the consumer
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.running.Load() {
		<-c.done
	}
	c.logger.Info("Kafka consumer stopped", zap.Any("stats", c.Stats()))
}
