package services

import (
	"context"
	"fmt"

	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/kafka"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// MeasurementIngester persists readings and runs outage detection on them
type MeasurementIngester interface {
	Ingest(ctx context.Context, m models.Measurement) error
}

// OutageEventProducer publishes outage events to a broker
type OutageEventProducer interface {
	ProduceOutageEvent(outageID, eventType string, event interface{}) error
}

// KafkaHandler bridges Kafka topics and the measurement and outage services
type KafkaHandler struct {
	logger       *utils.Logger
	kafkaManager *kafka.Manager
	producer     OutageEventProducer
	ingester     MeasurementIngester
	ctx          context.Context
}

// NewKafkaHandler creates a new Kafka message handler service
func NewKafkaHandler(logger *utils.Logger, kafkaManager *kafka.Manager, ingester MeasurementIngester) *KafkaHandler {
	handler := &KafkaHandler{
		logger:       logger.Named("kafka_handler"),
		kafkaManager: kafkaManager,
		ingester:     ingester,
		ctx:          context.Background(),
	}
	if kafkaManager != nil {
		handler.producer = kafkaManager
	}
	return handler
}

// Initialize registers the measurement consumer. ctx bounds the ingestion of consumed readings.
func (h *KafkaHandler) Initialize(ctx context.Context) error {
	h.ctx = ctx
	if err := h.kafkaManager.RegisterMeasurementHandler("powermonitor", h.HandleMeasurement); err != nil {
		return fmt.Errorf("failed to register measurement handler: %w", err)
	}
	return nil
}

// HandleMeasurement ingests one reading from the measurement topic
func (h *KafkaHandler) HandleMeasurement(msg kafka.MeasurementMessage) error {
	meterID := msg.MeterID
	if meterID == "" {
		meterID = models.DefaultMeterID
	}

	err := h.ingester.Ingest(h.ctx, models.Measurement{
		Timestamp: msg.Timestamp,
		MeterID:   meterID,
		Voltage:   msg.Voltage,
		Current:   msg.Current,
		Power:     msg.Power,
		Energy:    msg.Energy,
		PF:        msg.PF,
	})
	if err != nil {
		h.logger.Error("Failed to ingest measurement",
			zap.String("meter_id", meterID),
			zap.Time("timestamp", msg.Timestamp),
			zap.Error(err))
		return err
	}
	return nil
}

// PublishOutageEvent implements EventPublisher by forwarding the event to the outage topic
func (h *KafkaHandler) PublishOutageEvent(_ context.Context, event OutageEvent) {
	if h.producer == nil {
		return
	}
	if err := h.producer.ProduceOutageEvent(event.Outage.ID, string(event.Type), event); err != nil {
		h.logger.Error("Failed to produce outage event to Kafka",
			zap.String("outage_id", event.Outage.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
