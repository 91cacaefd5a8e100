package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(a *entity.Appointment) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DoctorID:    a.DoctorID,
		SlotDate:    a.SlotDate,
		SlotTime:    a.SlotTime,
		Doctor:      a.DoctorSnapshot,
		Patient:     a.PatientSnapshot,
		Amount:      a.Amount,
		State:       string(a.State()),
		Cancelled:   a.Cancelled,
		IsCompleted: a.IsCompleted,
		Payment:     a.Payment,
		PaidAt:      a.PaidAt,
		CancelledAt: a.CancelledAt,
		CompletedAt: a.CompletedAt,
		CreatedAt:   a.CreatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
