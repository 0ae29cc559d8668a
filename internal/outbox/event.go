package outbox

import (
	"encoding/json"
)

// Event types. The Kafka topic name equals the event type.
const (
	TypeAppointmentPending   = "appointments.pending.v1"
	TypeAppointmentBooked    = "appointments.booked.v1"
	TypeAppointmentCancelled = "appointments.cancelled.v1"
	TypeAppointmentCompleted = "appointments.completed.v1"
	TypeSlotsReplaced        = "slots.replaced.v1"
)

const (
	AggregateAppointment = "appointment"
	AggregateSlotDate    = "slot_date"
)

// Event is the envelope written to the outbox table in the same transaction
// as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

func NewEvent(aggregateType, aggregateID, eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}, nil
}
