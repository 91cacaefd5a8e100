package dto

import (
	"time"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// BookAppointmentRequest books a slot. PatientID defaults to the caller and
// is required when an admin books on a patient's behalf.
type BookAppointmentRequest struct {
	PatientID string `json:"patient_id" validate:"omitempty,uuid"`
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	SlotDate  string `json:"slot_date" validate:"required,slotdate"`
	SlotTime  string `json:"slot_time" validate:"required,slottime"`
}

type AppointmentListRequest struct {
	State string `validate:"omitempty,oneof=booked paid completed cancelled"`
	Page  int    `validate:"gte=1"`
	Limit int    `validate:"gte=1,lte=100"`
}

// Response DTOs

type AppointmentResponse struct {
	ID          uuid.UUID              `json:"id"`
	PatientID   uuid.UUID              `json:"patient_id"`
	DoctorID    uuid.UUID              `json:"doctor_id"`
	SlotDate    string                 `json:"slot_date"`
	SlotTime    string                 `json:"slot_time"`
	Doctor      entity.DoctorSnapshot  `json:"doctor"`
	Patient     entity.PatientSnapshot `json:"patient"`
	Amount      decimal.Decimal        `json:"amount"`
	State       string                 `json:"state"`
	Cancelled   bool                   `json:"cancelled"`
	IsCompleted bool                   `json:"is_completed"`
	Payment     bool                   `json:"payment"`
	PaidAt      *time.Time             `json:"paid_at,omitempty"`
	CancelledAt *time.Time             `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int64                 `json:"total"`
}
