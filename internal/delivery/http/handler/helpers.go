package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"clinic-appointment-service/internal/delivery/http/middleware"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	maxImageSize      = 5 << 20
	imageFormField    = "image"
	defaultPageLimit  = 20
	maxWebhookPayload = 64 << 10
	maxJSONBody       = 1 << 20
)

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// bindJSON decodes and validates the body, writing the 400 itself on failure.
func bindJSON(w http.ResponseWriter, r *http.Request, v *validator.CustomValidator, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := decodeJSON(r, dst); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := v.Validate(dst); err != nil {
		response.ValidationError(w, v.FormatValidationErrors(err))
		return false
	}
	return true
}

func requesterFromRequest(w http.ResponseWriter, r *http.Request) (entity.Requester, bool) {
	requester, ok := middleware.GetRequesterFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return entity.Requester{}, false
	}
	return requester, true
}

func uuidVar(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func slotFromQuery(w http.ResponseWriter, r *http.Request) (entity.Slot, bool) {
	doctorID, ok := uuidVar(w, r, "id", "doctor")
	if !ok {
		return entity.Slot{}, false
	}
	query := r.URL.Query()
	return entity.Slot{DoctorID: doctorID, Date: query.Get("slot_date"), Time: query.Get("slot_time")}, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return value
}

// imageFromRequest opens the uploaded image part. The caller closes it.
func imageFromRequest(w http.ResponseWriter, r *http.Request) (io.ReadCloser, int64, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1024)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		response.BadRequest(w, "Image must be a multipart upload of at most 5MB")
		return nil, 0, "", false
	}

	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		response.BadRequest(w, "Image file is required")
		return nil, 0, "", false
	}

	return file, header.Size, header.Header.Get("Content-Type"), true
}

// writeAppointmentError maps booking, lifecycle and payment errors to responses.
func writeAppointmentError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrAppointmentNotFound):
		response.NotFound(w, "Appointment not found")
	case errors.Is(err, usecase.ErrDoctorNotFound):
		response.NotFound(w, "Doctor not found")
	case errors.Is(err, usecase.ErrPatientNotFound):
		response.NotFound(w, "Patient not found")
	case errors.Is(err, usecase.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, usecase.ErrDoctorUnavailable):
		response.Forbidden(w, "Doctor is not available")
	case errors.Is(err, usecase.ErrSlotConflict):
		response.Conflict(w, "Slot is already booked")
	case errors.Is(err, usecase.ErrAlreadyTerminal),
		errors.Is(err, usecase.ErrPaymentReferenceMismatch),
		errors.Is(err, usecase.ErrAppointmentNotPayable),
		errors.Is(err, usecase.ErrAppointmentNotPaid):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrInvalidSlot),
		errors.Is(err, usecase.ErrPatientIDRequired),
		errors.Is(err, usecase.ErrInvalidAppointment),
		errors.Is(err, usecase.ErrInvalidPaymentReference),
		errors.Is(err, usecase.ErrPaymentMismatch),
		errors.Is(err, usecase.ErrUntrustedReturnURL):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrPaymentSessionNotFound):
		response.NotFound(w, "Payment session not found")
	case errors.Is(err, service.ErrUpstream):
		response.BadGateway(w, "Payment provider unavailable")
	default:
		response.InternalServerError(w, fallback)
	}
}
