package handler

import (
	"errors"
	"net/http"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"

	"github.com/google/uuid"
)

type DoctorHandler struct {
	doctorUsecase  usecase.DoctorProfileUsecase
	bookingUsecase usecase.AppointmentBookingUsecase
	validator      *validator.CustomValidator
}

func NewDoctorHandler(doctorUsecase usecase.DoctorProfileUsecase, bookingUsecase usecase.AppointmentBookingUsecase, validator *validator.CustomValidator) *DoctorHandler {
	return &DoctorHandler{
		doctorUsecase:  doctorUsecase,
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

func writeDoctorError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrDoctorNotFound):
		response.NotFound(w, "Doctor not found")
	case errors.Is(err, usecase.ErrEmailAlreadyExists):
		response.Conflict(w, "Email already exists")
	case errors.Is(err, usecase.ErrInvalidFees), errors.Is(err, usecase.ErrInvalidOldPassword):
		response.BadRequest(w, err.Error())
	case errors.Is(err, usecase.ErrForbidden):
		response.Forbidden(w, err.Error())
	default:
		response.InternalServerError(w, fallback)
	}
}

// ==================== PUBLIC ====================

// ListDoctors returns bookable doctors, optionally filtered by ?speciality=
func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	h.listDoctors(w, r, true)
}

func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "id", "doctor")
	if !ok {
		return
	}

	doctor, err := h.doctorUsecase.GetDoctor(r.Context(), doctorID)
	if err != nil {
		writeDoctorError(w, err, "Failed to get doctor")
		return
	}

	response.Success(w, http.StatusOK, "Doctor retrieved successfully", doctor)
}

func (h *DoctorHandler) GetBookedSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "id", "doctor")
	if !ok {
		return
	}

	slots, err := h.bookingUsecase.GetBookedSlots(r.Context(), doctorID)
	if err != nil {
		writeDoctorError(w, err, "Failed to get booked slots")
		return
	}

	response.Success(w, http.StatusOK, "Booked slots retrieved successfully", slots)
}

// CheckSlot answers whether ?slot_date=&slot_time= is taken for the doctor
func (h *DoctorHandler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotFromQuery(w, r)
	if !ok {
		return
	}

	availability, err := h.bookingUsecase.CheckSlot(r.Context(), slot)
	if err != nil {
		writeAppointmentError(w, err, "Failed to check slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot checked", availability)
}

// ==================== ADMIN ====================

// ReleaseSlot drops a ledger entry left behind without an active appointment
func (h *DoctorHandler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	slot, ok := slotFromQuery(w, r)
	if !ok {
		return
	}

	if err := h.bookingUsecase.ReleaseStaleSlot(r.Context(), requester, slot); err != nil {
		writeAppointmentError(w, err, "Failed to release slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot released", nil)
}

func (h *DoctorHandler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.CreateDoctorRequest
	if !bindJSON(w, r, h.validator, &req) {
		return
	}

	doctor, err := h.doctorUsecase.CreateDoctor(r.Context(), requester, &req)
	if err != nil {
		writeDoctorError(w, err, "Failed to create doctor")
		return
	}

	response.Success(w, http.StatusCreated, "Doctor created successfully", doctor)
}

// GetAllDoctors lists every doctor including unavailable ones
func (h *DoctorHandler) GetAllDoctors(w http.ResponseWriter, r *http.Request) {
	h.listDoctors(w, r, false)
}

func (h *DoctorHandler) listDoctors(w http.ResponseWriter, r *http.Request, availableOnly bool) {
	doctors, err := h.doctorUsecase.ListDoctors(r.Context(), entity.DoctorFilter{
		Speciality:    r.URL.Query().Get("speciality"),
		AvailableOnly: availableOnly,
	})
	if err != nil {
		response.InternalServerError(w, "Failed to get doctors")
		return
	}

	response.Success(w, http.StatusOK, "Doctors retrieved successfully", doctors)
}

func (h *DoctorHandler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	doctorID, ok := uuidVar(w, r, "id", "doctor")
	if !ok {
		return
	}

	var req dto.UpdateDoctorRequest
	if !bindJSON(w, r, h.validator, &req) {
		return
	}

	doctor, err := h.doctorUsecase.UpdateDoctor(r.Context(), requester, doctorID, &req)
	if err != nil {
		writeDoctorError(w, err, "Failed to update doctor")
		return
	}

	response.Success(w, http.StatusOK, "Doctor updated successfully", doctor)
}

func (h *DoctorHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	doctorID, ok := uuidVar(w, r, "id", "doctor")
	if !ok {
		return
	}

	h.toggleAvailability(w, r, requester, doctorID)
}

func (h *DoctorHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}
	doctorID, ok := uuidVar(w, r, "id", "doctor")
	if !ok {
		return
	}

	h.uploadImage(w, r, requester, doctorID)
}

// ==================== DOCTOR SELF ====================

func (h *DoctorHandler) GetSelfProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	doctor, err := h.doctorUsecase.GetDoctor(r.Context(), requester.UserID)
	if err != nil {
		writeDoctorError(w, err, "Failed to get profile")
		return
	}

	response.Success(w, http.StatusOK, "Profile retrieved successfully", doctor)
}

func (h *DoctorHandler) UpdateSelfProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.DoctorUpdateSelfRequest
	if !bindJSON(w, r, h.validator, &req) {
		return
	}

	doctor, err := h.doctorUsecase.UpdateSelfProfile(r.Context(), requester, &req)
	if err != nil {
		writeDoctorError(w, err, "Failed to update profile")
		return
	}

	response.Success(w, http.StatusOK, "Profile updated successfully", doctor)
}

func (h *DoctorHandler) ToggleSelfAvailability(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	h.toggleAvailability(w, r, requester, requester.UserID)
}

func (h *DoctorHandler) UploadSelfImage(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	h.uploadImage(w, r, requester, requester.UserID)
}

func (h *DoctorHandler) toggleAvailability(w http.ResponseWriter, r *http.Request, requester entity.Requester, doctorID uuid.UUID) {
	doctor, err := h.doctorUsecase.ToggleAvailability(r.Context(), requester, doctorID)
	if err != nil {
		writeDoctorError(w, err, "Failed to change availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability changed", doctor)
}

func (h *DoctorHandler) uploadImage(w http.ResponseWriter, r *http.Request, requester entity.Requester, doctorID uuid.UUID) {
	file, size, contentType, ok := imageFromRequest(w, r)
	if !ok {
		return
	}
	defer file.Close()

	doctor, err := h.doctorUsecase.UploadImage(r.Context(), requester, doctorID, file, size, contentType)
	if err != nil {
		writeImageError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Image uploaded successfully", doctor)
}
