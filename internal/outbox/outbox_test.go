package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent(AggregateAppointment, "abc", TypeAppointmentBooked, map[string]string{"status": "BOOKED"})
	require.NoError(t, err)

	assert.Equal(t, "abc", evt.AggregateID)
	assert.Equal(t, TypeAppointmentBooked, evt.EventType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "BOOKED", payload["status"])
}

func TestBuildMessageCarriesHeaders(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), telemetry.Config{Enabled: false})
	require.NoError(t, err)

	rec := Record{
		ID:            7,
		EventID:       "evt-1",
		AggregateType: AggregateAppointment,
		AggregateID:   "appt-1",
		EventType:     TypeAppointmentPending,
		Payload:       []byte(`{"id":"appt-1"}`),
		Traceparent:   "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}

	msg := BuildMessage(context.Background(), rec)

	assert.Equal(t, TypeAppointmentPending, msg.Topic)
	assert.Equal(t, []byte("appt-1"), msg.Key)
	assert.Equal(t, "evt-1", HeaderValue(msg.Headers, "event_id"))
	assert.Equal(t, TypeAppointmentPending, HeaderValue(msg.Headers, "event_type"))
	assert.Equal(t, rec.Traceparent, HeaderValue(msg.Headers, "traceparent"))
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestPublisherDisabledWithoutBrokers(t *testing.T) {
	p := NewPublisher(nil, NewRepository(), nil, PublisherConfig{})
	assert.False(t, p.Enabled())
}
