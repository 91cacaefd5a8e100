package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Appointment event types, also used as routing keys.
const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentPaid      = "appointment.paid"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentCompleted = "appointment.completed"
)

type AppointmentEvent struct {
	Type          string          `json:"type"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	DoctorID      uuid.UUID       `json:"doctor_id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	SlotDate      string          `json:"slot_date"`
	SlotTime      string          `json:"slot_time"`
	Amount        decimal.Decimal `json:"amount"`
	State         string          `json:"state"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewAppointmentEvent(eventType string, a *Appointment, at time.Time) AppointmentEvent {
	return AppointmentEvent{
		Type:          eventType,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		SlotDate:      a.SlotDate,
		SlotTime:      a.SlotTime,
		Amount:        a.Amount,
		State:         string(a.State()),
		OccurredAt:    at,
	}
}
