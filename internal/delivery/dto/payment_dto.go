package dto

import "github.com/google/uuid"

// Request DTOs

type CreateCheckoutSessionRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	SuccessURL    string `json:"success_url" validate:"omitempty,url,max=2048"`
	CancelURL     string `json:"cancel_url" validate:"omitempty,url,max=2048"`
}

type ConfirmPaymentRequest struct {
	SessionID     string `json:"session_id" validate:"required"`
	AppointmentID string `json:"appointment_id" validate:"omitempty,uuid"`
}

// Response DTOs

type CheckoutSessionResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	SessionID     string    `json:"session_id"`
	SessionURL    string    `json:"session_url"`
}

type PaymentConfirmationResponse struct {
	Paid        bool                 `json:"paid"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}
