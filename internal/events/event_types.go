package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentBooked   EventType = "appointment_booked"
	EventAppointmentCanceled EventType = "appointment_canceled"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	AppointmentID int64       `json:"appointment_id"`
	ActorID       int64       `json:"actor_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// NewEvent stamps a fresh id on an event of the given type.
func NewEvent(eventType EventType, appointmentID, actorID int64, at time.Time, payload interface{}) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AppointmentID: appointmentID,
		ActorID:       actorID,
		Timestamp:     at,
		Payload:       payload,
	}
}

// AppointmentBookedPayload payload.
type AppointmentBookedPayload struct {
	UserID     int64     `json:"user_id"`
	ProviderID int64     `json:"provider_id"`
	Date       time.Time `json:"date"`
}

// AppointmentCanceledPayload payload.
type AppointmentCanceledPayload struct {
	UserID     int64     `json:"user_id"`
	ProviderID int64     `json:"provider_id"`
	Date       time.Time `json:"date"`
	CanceledAt time.Time `json:"canceled_at"`
}
