package handler

import (
	"errors"
	"net/http"
	"strconv"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
	validator       *validator.CustomValidator
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase, validator *validator.CustomValidator) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
		validator:       validator,
	}
}

func (h *AuditLogHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	auditLogID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid audit log ID")
		return
	}

	auditLog, err := h.auditLogUsecase.GetAuditLog(r.Context(), auditLogID)
	if err != nil {
		if errors.Is(err, usecase.ErrAuditLogNotFound) {
			response.NotFound(w, "Audit log not found")
			return
		}
		response.InternalServerError(w, "Failed to get audit log")
		return
	}

	response.Success(w, http.StatusOK, "Audit log retrieved successfully", auditLog)
}

// GetAllAuditLogs supports ?action=&user_id=&entity_type=&entity_id=&page=&limit=
func (h *AuditLogHandler) GetAllAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := dto.AuditLogListRequest{
		Action:     query.Get("action"),
		UserID:     query.Get("user_id"),
		EntityType: query.Get("entity_type"),
		EntityID:   query.Get("entity_id"),
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", defaultPageLimit),
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	auditLogs, err := h.auditLogUsecase.GetAllAuditLogs(r.Context(), &req)
	if err != nil {
		response.InternalServerError(w, "Failed to get audit logs")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs.Logs, response.NewMeta(req.Page, req.Limit, auditLogs.Total))
}

func (h *AuditLogHandler) GetAppointmentHistory(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := uuidVar(w, r, "id", "appointment")
	if !ok {
		return
	}

	history, err := h.auditLogUsecase.GetAppointmentHistory(r.Context(), appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointment history")
		return
	}

	response.Success(w, http.StatusOK, "Appointment history retrieved successfully", history)
}
