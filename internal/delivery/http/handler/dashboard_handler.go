package handler

import (
	"net/http"

	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
)

type DashboardHandler struct {
	dashboardUsecase usecase.DashboardUsecase
}

func NewDashboardHandler(dashboardUsecase usecase.DashboardUsecase) *DashboardHandler {
	return &DashboardHandler{
		dashboardUsecase: dashboardUsecase,
	}
}

func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboardUsecase.AdminDashboard(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to load dashboard")
		return
	}

	response.Success(w, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}

func (h *DashboardHandler) DoctorDashboard(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFromRequest(w, r)
	if !ok {
		return
	}

	dashboard, err := h.dashboardUsecase.DoctorDashboard(r.Context(), requester)
	if err != nil {
		response.InternalServerError(w, "Failed to load dashboard")
		return
	}

	response.Success(w, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}
