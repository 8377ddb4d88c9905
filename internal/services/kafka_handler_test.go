package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/kafka"
	"github.com/jat99/PowerMonitor/internal/testutil"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingesterStub struct {
	got []models.Measurement
	err error
}

func (s *ingesterStub) Ingest(_ context.Context, m models.Measurement) error {
	s.got = append(s.got, m)
	return s.err
}

type producerStub struct {
	keys  []string
	types []string
}

func (p *producerStub) ProduceOutageEvent(outageID, eventType string, _ interface{}) error {
	p.keys = append(p.keys, outageID)
	p.types = append(p.types, eventType)
	return nil
}

func TestKafkaHandler_HandleMeasurement(t *testing.T) {
	ingester := &ingesterStub{}
	handler := NewKafkaHandler(utils.NewNopLogger(), nil, ingester)
	ts := testutil.MustTime("2024-01-15T14:23:00Z")

	require.NoError(t, handler.HandleMeasurement(kafka.MeasurementMessage{Timestamp: ts, Voltage: 0.4}))
	require.Len(t, ingester.got, 1)
	assert.Equal(t, models.DefaultMeterID, ingester.got[0].MeterID)
	assert.Equal(t, 0.4, ingester.got[0].Voltage)

	ingester.err = errors.New("database is locked")
	assert.Error(t, handler.HandleMeasurement(kafka.MeasurementMessage{MeterID: "m2", Timestamp: ts.Add(time.Minute)}),
		"errors reach the consumer so the message is dead-lettered")
}

func TestKafkaHandler_PublishOutageEvent(t *testing.T) {
	handler := NewKafkaHandler(utils.NewNopLogger(), nil, &ingesterStub{})

	// No producer configured
	assert.NotPanics(t, func() {
		handler.PublishOutageEvent(context.Background(), OutageEvent{Type: OutageOpened})
	})

	producer := &producerStub{}
	handler.producer = producer

	event := OutageEvent{Type: OutageResolved}
	event.Outage.ID = "12"
	handler.PublishOutageEvent(context.Background(), event)

	assert.Equal(t, []string{"12"}, producer.keys)
	assert.Equal(t, []string{"resolved"}, producer.types)
}
