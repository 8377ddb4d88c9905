package kafka

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMeasurement(t *testing.T) {
	t.Run("Should decode a reading", func(t *testing.T) {
		msg, err := DecodeMeasurement([]byte(`{"meter_id":"main","timestamp":"2024-01-15T10:00:00Z",
			"voltage":121.5,"current":12.1,"power":1450,"energy":3.2,"pf":0.95}`))
		require.NoError(t, err)
		assert.Equal(t, "main", msg.MeterID)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), msg.Timestamp)
		assert.Equal(t, 121.5, msg.Voltage)
		assert.Equal(t, 0.95, msg.PF)
	})

	t.Run("Should reject a reading without timestamp", func(t *testing.T) {
		_, err := DecodeMeasurement([]byte(`{"meter_id":"main","voltage":121.5}`))
		assert.Error(t, err)
	})

	t.Run("Should reject invalid JSON", func(t *testing.T) {
		_, err := DecodeMeasurement([]byte(`{not json`))
		assert.Error(t, err)
	})
}

func TestEncode(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	msg, err := encode("outage-events", &Message{
		Key:       "42",
		Value:     map[string]string{"type": "opened"},
		Timestamp: ts,
		Headers:   map[string]string{"event_type": "opened"},
	})
	require.NoError(t, err)
	assert.Equal(t, "outage-events", *msg.TopicPartition.Topic)
	assert.Equal(t, []byte("42"), msg.Key)
	assert.JSONEq(t, `{"type":"opened"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	raw, err := encode("power-measurements.dlq", &Message{Value: []byte(`{"broken"`)})
	require.NoError(t, err)
	assert.Equal(t, `{"broken"`, string(raw.Value))
	assert.Nil(t, raw.Key)
}

func TestDeadLetterTopic(t *testing.T) {
	assert.Equal(t, "power-measurements.dlq", DeadLetterTopic("power-measurements"))
}

type recordingDLQ struct {
	topics   []string
	messages []*Message
}

func (r *recordingDLQ) Produce(topic string, message *Message) error {
	r.topics = append(r.topics, topic)
	r.messages = append(r.messages, message)
	return nil
}

func TestConsumer_Handle(t *testing.T) {
	dlq := &recordingDLQ{}
	c := &Consumer{
		name:     "test-measurements",
		logger:   utils.NewNopLogger(),
		handlers: map[string][]MessageHandler{},
		dlq:      dlq,
	}

	var decoded []MeasurementMessage
	c.RegisterHandler("power-measurements", func(msg *kafka.Message) error {
		m, err := DecodeMeasurement(msg.Value)
		if err != nil {
			return err
		}
		decoded = append(decoded, m)
		return nil
	})

	topic := "power-measurements"
	message := func(value string) *kafka.Message {
		return &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic},
			Key:            []byte("main"),
			Value:          []byte(value),
		}
	}

	c.handle(message(`{"meter_id":"main","timestamp":"2024-01-15T10:00:00Z","voltage":120}`))
	c.handle(message(`{"meter_id":"main","voltage":0}`))
	c.handle(nil)

	require.Len(t, decoded, 1)
	assert.Equal(t, 120.0, decoded[0].Voltage)

	require.Len(t, dlq.topics, 1)
	assert.Equal(t, "power-measurements.dlq", dlq.topics[0])
	assert.Equal(t, "power-measurements", dlq.messages[0].Headers["original_topic"])
	assert.Equal(t, "test-measurements", dlq.messages[0].Headers["consumer"])
	assert.Equal(t, `{"meter_id":"main","voltage":0}`, string(dlq.messages[0].Value.([]byte)))

	assert.Equal(t, Stats{Processed: 1, Failed: 1, DeadLettered: 1}, c.Stats())
	assert.Equal(t, Stats{Processed: 2, Failed: 1, DeadLettered: 1}, c.Stats().Add(Stats{Processed: 1}))
	assert.ElementsMatch(t, []string{"power-measurements"}, c.Topics())
}
