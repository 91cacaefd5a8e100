package handler

import (
	"errors"
	"net/http"

	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
)

func writeImageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedImageType):
		response.BadRequest(w, "Image must be JPEG, PNG or WebP")
	case errors.Is(err, usecase.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, usecase.ErrDoctorNotFound), errors.Is(err, usecase.ErrPatientNotFound),
		errors.Is(err, usecase.ErrUserNotFound):
		response.NotFound(w, "Profile not found")
	default:
		response.InternalServerError(w, "Failed to upload image")
	}
}
