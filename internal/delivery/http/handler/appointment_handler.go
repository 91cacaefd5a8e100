package handler

import (
	"net/http"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"
)

type AppointmentHandler struct {
	bookingUsecase   usecase.AppointmentBookingUsecase
	lifecycleUsecase usecase.AppointmentLifecycleUsecase
	validator        *validator.CustomValidator
}

func NewAppointmentHandler(
	bookingUsecase usecase.AppointmentBookingUsecase,
	lifecycleUsecase usecase.AppointmentLifecycleUsecase,
	validator *validator.CustomValidator,
) *AppointmentHandler {
	return &AppointmentHandler{
		bookingUsecase:   bookingUsecase,
		lifecycleUsecase: lifecycleUsecase,
		validator:        validator,
	}
}

// BookAppointment reserves a doctor's slot
// @Summary Book an appointment
// @Tags Appointments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookAppointmentRequest true "Booking Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.BookAppointmentRequest
	if !bindJSON(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.bookingUsecase.BookAppointment(r.Context(), requester, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to book appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", appointment)
}

func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	appointments, err := h.bookingUsecase.GetMyAppointments(r.Context(), requester)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	appointments, err := h.bookingUsecase.GetDoctorAppointments(r.Context(), requester)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

// GetAllAppointments lists appointments for admins, ?state=&page=&limit=
func (h *AppointmentHandler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	req := dto.AppointmentListRequest{
		State: r.URL.Query().Get("state"),
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", defaultPageLimit),
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointments, err := h.bookingUsecase.GetAllAppointments(r.Context(), &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointments")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Appointments retrieved successfully", appointments.Appointments, response.NewMeta(req.Page, req.Limit, appointments.Total))
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	appointmentID, ok := uuidVar(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.bookingUsecase.GetAppointment(r.Context(), requester, appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

// CancelAppointment cancels and frees the slot
// @Summary Cancel an appointment
// @Tags Appointments
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	appointmentID, ok := uuidVar(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.lifecycleUsecase.Cancel(r.Context(), requester, appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled", appointment)
}

// CompleteAppointment is called by the appointment's doctor
// @Summary Complete an appointment
// @Tags Appointments
// @Security BearerAuth
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	appointmentID, ok := uuidVar(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.lifecycleUsecase.Complete(r.Context(), requester, appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed", appointment)
}
