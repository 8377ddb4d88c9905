package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// statsInterval is how often consumer throughput is logged
const statsInterval = time.Minute

// MeasurementMessage is one meter reading on the measurement topic
type MeasurementMessage struct {
	MeterID   string    `json:"meter_id"`
	Timestamp time.Time `json:"timestamp"`
	Voltage   float64   `json:"voltage"`
	Current   float64   `json:"current"`
	Power     float64   `json:"power"`
	Energy    float64   `json:"energy"`
	PF        float64   `json:"pf"`
}

// Manager owns the producers and the consumers of the measurement and outage topics
type Manager struct {
	config    *config.KafkaConfig
	logger    *utils.Logger
	producer  *Producer
	dlq       *Producer
	consumers map[string]*Consumer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewManager connects the main and dead letter producers
func NewManager(cfg *config.KafkaConfig, logger *utils.Logger) (*Manager, error) {
	kafkaLogger := logger.Named("kafka_manager")

	producer, err := NewProducer(cfg, "powermonitor-producer", kafkaLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create main producer: %w", err)
	}

	dlq, err := NewProducer(cfg, "powermonitor-dlq", kafkaLogger)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:    cfg,
		logger:    kafkaLogger,
		producer:  producer,
		dlq:       dlq,
		consumers: make(map[string]*Consumer),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start starts every registered consumer. A manager without consumers only produces.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("kafka manager is already running")
	}

	for name, consumer := range m.consumers {
		if err := consumer.Start(m.ctx); err != nil {
			m.stopConsumers()
			return fmt.Errorf("failed to start consumer %s: %w", name, err)
		}
	}

	if len(m.consumers) > 0 {
		m.wg.Add(1)
		go m.logStats()
	}

	m.running = true
	m.logger.Info("Kafka manager started", zap.Int("consumers", len(m.consumers)))
	return nil
}

// AddConsumer creates a consumer for the topics in handlers. It must be called before Start.
func (m *Manager) AddConsumer(name string, handlers map[string][]MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("cannot add consumer %s while the manager is running", name)
	}
	if _, exists := m.consumers[name]; exists {
		return fmt.Errorf("consumer %s already exists", name)
	}

	consumer, err := NewConsumer(name, m.config, m.logger, m.dlq)
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", name, err)
	}
	for topic, topicHandlers := range handlers {
		for _, handler := range topicHandlers {
			consumer.RegisterHandler(topic, handler)
		}
	}

	m.consumers[name] = consumer
	m.logger.Info("Added consumer", zap.String("name", name), zap.Strings("topics", consumer.Topics()))
	return nil
}

// ProduceMessage sends a JSON message to topic without waiting for delivery
func (m *Manager) ProduceMessage(topic string, key string, value interface{}, headers map[string]string) error {
	return m.producer.Produce(topic, &Message{
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
		Headers:   headers,
	})
}

// ProduceMeasurement publishes a meter reading keyed by meter id, so one meter's
// readings stay ordered within a partition
func (m *Manager) ProduceMeasurement(msg MeasurementMessage) error {
	return m.producer.Produce(m.config.MeasurementTopic, &Message{
		Key:       msg.MeterID,
		Value:     msg,
		Timestamp: msg.Timestamp,
	})
}

// ProduceOutageEvent publishes an outage lifecycle event keyed by outage id
func (m *Manager) ProduceOutageEvent(outageID, eventType string, event interface{}) error {
	return m.ProduceMessage(m.config.OutageTopic, outageID, event, map[string]string{
		"event_type": eventType,
	})
}

// DecodeMeasurement parses the JSON payload of a measurement message
func DecodeMeasurement(value []byte) (MeasurementMessage, error) {
	var msg MeasurementMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal measurement: %w", err)
	}
	if msg.Timestamp.IsZero() {
		return msg, fmt.Errorf("measurement without timestamp")
	}
	return msg, nil
}

// RegisterMeasurementHandler adds a consumer named "<name>-measurements" that
// decodes each reading before calling handler. Undecodable readings are dead-lettered.
func (m *Manager) RegisterMeasurementHandler(name string, handler func(MeasurementMessage) error) error {
	decode := func(msg *kafka.Message) error {
		measurement, err := DecodeMeasurement(msg.Value)
		if err != nil {
			return err
		}
		return handler(measurement)
	}

	return m.AddConsumer(name+"-measurements", map[string][]MessageHandler{
		m.config.MeasurementTopic: {decode},
	})
}

// Stats sums the counters of every consumer
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total Stats
	for _, consumer := range m.consumers {
		total = total.Add(consumer.Stats())
	}
	return total
}

// DeliveryFailures counts messages the brokers rejected, dead letters included
func (m *Manager) DeliveryFailures() int64 {
	return m.producer.Failures() + m.dlq.Failures()
}

// logStats logs what the consumers handled during each interval
func (m *Manager) logStats() {
	defer m.wg.Done()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	var last Stats
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			current := m.Stats()
			delta := Stats{
				Processed:    current.Processed - last.Processed,
				Failed:       current.Failed - last.Failed,
				DeadLettered: current.DeadLettered - last.DeadLettered,
			}
			last = current
			if delta != (Stats{}) {
				m.logger.Info("Kafka consumer throughput",
					zap.Int64("processed", delta.Processed),
					zap.Int64("failed", delta.Failed),
					zap.Int64("dead_lettered", delta.DeadLettered),
					zap.Duration("interval", statsInterval))
			}
		}
	}
}

func (m *Manager) stopConsumers() {
	for _, consumer := range m.consumers {
		consumer.Stop()
	}
}

// Stop stops the consumers, then flushes and closes the producers
func (m *Manager) Stop() error {
	// logStats takes mu, so it must exit before the lock is held
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.stopConsumers()
	}

	m.producer.Close()
	m.dlq.Close()

	m.running = false
	m.logger.Info("Kafka manager stopped")
	return nil
}

// IsRunning reports whether Start succeeded and Stop has not been called
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
