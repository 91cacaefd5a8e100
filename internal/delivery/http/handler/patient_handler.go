package handler

import (
	"errors"
	"net/http"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"
)

type PatientHandler struct {
	patientUsecase usecase.PatientProfileUsecase
	validator      *validator.CustomValidator
}

func NewPatientHandler(patientUsecase usecase.PatientProfileUsecase, validator *validator.CustomValidator) *PatientHandler {
	return &PatientHandler{
		patientUsecase: patientUsecase,
		validator:      validator,
	}
}

func (h *PatientHandler) GetSelfProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.patientUsecase.GetSelfProfile(r.Context(), requester)
	if err != nil {
		if errors.Is(err, usecase.ErrPatientNotFound) {
			response.NotFound(w, "Patient profile not found")
			return
		}
		response.InternalServerError(w, "Failed to get profile")
		return
	}

	response.Success(w, http.StatusOK, "Profile retrieved successfully", profile)
}

func (h *PatientHandler) UpdateSelfProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.PatientUpdateSelfRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	profile, err := h.patientUsecase.UpdateSelfProfile(r.Context(), requester, &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrPatientNotFound):
			response.NotFound(w, "Patient profile not found")
		case errors.Is(err, usecase.ErrInvalidOldPassword), errors.Is(err, usecase.ErrInvalidDateFormat):
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
		default:
			response.InternalServerError(w, "Failed to update profile")
		}
		return
	}

	response.Success(w, http.StatusOK, "Profile updated successfully", profile)
}

func (h *PatientHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	file, size, contentType, ok := imageFromRequest(w, r)
	if !ok {
		return
	}
	defer file.Close()

	profile, err := h.patientUsecase.UploadImage(r.Context(), requester, file, size, contentType)
	if err != nil {
		writeImageError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Image uploaded successfully", profile)
}
