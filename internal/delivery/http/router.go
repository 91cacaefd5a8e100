package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"clinic-appointment-service/internal/delivery/http/handler"
	"clinic-appointment-service/internal/delivery/http/middleware"
	"clinic-appointment-service/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	HealthChecks       map[string]HealthCheck
}

type Router struct {
	router             *mux.Router
	cfg                RouterConfig
	log                *logrus.Logger
	authHandler        *handler.AuthHandler
	doctorHandler      *handler.DoctorHandler
	patientHandler     *handler.PatientHandler
	appointmentHandler *handler.AppointmentHandler
	paymentHandler     *handler.PaymentHandler
	dashboardHandler   *handler.DashboardHandler
	auditLogHandler    *handler.AuditLogHandler
	authMiddleware     *middleware.AuthMiddleware
}

func NewRouter(
	cfg RouterConfig,
	log *logrus.Logger,
	authHandler *handler.AuthHandler,
	doctorHandler *handler.DoctorHandler,
	patientHandler *handler.PatientHandler,
	appointmentHandler *handler.AppointmentHandler,
	paymentHandler *handler.PaymentHandler,
	dashboardHandler *handler.DashboardHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		cfg:                cfg,
		log:                log,
		authHandler:        authHandler,
		doctorHandler:      doctorHandler,
		patientHandler:     patientHandler,
		appointmentHandler: appointmentHandler,
		paymentHandler:     paymentHandler,
		dashboardHandler:   dashboardHandler,
		auditLogHandler:    auditLogHandler,
		authMiddleware:     authMiddleware,
	}
}

// Setup registers every route. CORS and request logging wrap the whole mux so
// preflight requests are answered before route matching.
func (r *Router) Setup() http.Handler {
	limit := middleware.RateLimitByIP(r.cfg.RateLimitPerMinute)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(limit)
	auth.HandleFunc("/register", r.authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Doctor directory (public)
	doctors := api.PathPrefix("/doctors").Subrouter()
	doctors.HandleFunc("", r.doctorHandler.ListDoctors).Methods(http.MethodGet)
	doctors.HandleFunc("/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	doctors.HandleFunc("/{id}/slots", r.doctorHandler.GetBookedSlots).Methods(http.MethodGet)
	doctors.HandleFunc("/{id}/slots/check", r.doctorHandler.CheckSlot).Methods(http.MethodGet)

	// Payment webhook (public, signature checked)
	api.Handle("/payments/webhook", limit(http.HandlerFunc(r.paymentHandler.Webhook))).Methods(http.MethodPost)

	// Appointments (protected)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)
	appointments.Handle("", limit(middleware.RequirePatientOrAdmin(http.HandlerFunc(r.appointmentHandler.BookAppointment)))).Methods(http.MethodPost)
	appointments.Handle("/me", middleware.RequirePatient(http.HandlerFunc(r.appointmentHandler.GetMyAppointments))).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)
	appointments.Handle("/{id}/complete", middleware.RequireDoctor(http.HandlerFunc(r.appointmentHandler.CompleteAppointment))).Methods(http.MethodPost)
	appointments.Handle("/{id}/receipt", middleware.RequirePatientOrAdmin(http.HandlerFunc(r.paymentHandler.GetReceipt))).Methods(http.MethodGet)

	// Payments (protected - patient only)
	payments := api.PathPrefix("/payments").Subrouter()
	payments.Use(r.authMiddleware.Authenticate)
	payments.Use(middleware.RequirePatient)
	payments.HandleFunc("/sessions", r.paymentHandler.CreateCheckoutSession).Methods(http.MethodPost)
	payments.HandleFunc("/verify", r.paymentHandler.VerifyPayment).Methods(http.MethodPost)

	// Patient self service
	patients := api.PathPrefix("/patients/me").Subrouter()
	patients.Use(r.authMiddleware.Authenticate)
	patients.Use(middleware.RequirePatient)
	patients.HandleFunc("", r.patientHandler.GetSelfProfile).Methods(http.MethodGet)
	patients.HandleFunc("", r.patientHandler.UpdateSelfProfile).Methods(http.MethodPut)
	patients.HandleFunc("/image", r.patientHandler.UploadImage).Methods(http.MethodPut)

	// Doctor self service
	doctor := api.PathPrefix("/doctor").Subrouter()
	doctor.Use(r.authMiddleware.Authenticate)
	doctor.Use(middleware.RequireDoctor)
	doctor.HandleFunc("/profile", r.doctorHandler.GetSelfProfile).Methods(http.MethodGet)
	doctor.HandleFunc("/profile", r.doctorHandler.UpdateSelfProfile).Methods(http.MethodPut)
	doctor.HandleFunc("/availability", r.doctorHandler.ToggleSelfAvailability).Methods(http.MethodPost)
	doctor.HandleFunc("/appointments", r.appointmentHandler.GetDoctorAppointments).Methods(http.MethodGet)
	doctor.HandleFunc("/dashboard", r.dashboardHandler.DoctorDashboard).Methods(http.MethodGet)
	doctor.HandleFunc("/image", r.doctorHandler.UploadSelfImage).Methods(http.MethodPut)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Doctor management (admin)
	admin.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	admin.HandleFunc("/doctors", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut)
	admin.HandleFunc("/doctors/{id}/availability", r.doctorHandler.ToggleAvailability).Methods(http.MethodPost)
	admin.HandleFunc("/doctors/{id}/image", r.doctorHandler.UploadImage).Methods(http.MethodPut)
	admin.HandleFunc("/doctors/{id}/slots", r.doctorHandler.ReleaseSlot).Methods(http.MethodDelete)

	admin.HandleFunc("/appointments", r.appointmentHandler.GetAllAppointments).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}/history", r.auditLogHandler.GetAppointmentHistory).Methods(http.MethodGet)
	admin.HandleFunc("/dashboard", r.dashboardHandler.AdminDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	r.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return middleware.CORS(r.cfg.AllowedOrigins)(middleware.RequestLogger(r.log)(r.router))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	var (
		g        errgroup.Group
		mu       sync.Mutex
		statuses = map[string]string{"status": "ok"}
	)
	for name, check := range r.cfg.HealthChecks {
		name, check := name, check
		g.Go(func() error {
			status := "ok"
			if err := check(ctx); err != nil {
				r.log.Warnf("Health check %s failed: %+v", name, err)
				status = "down"
			}

			mu.Lock()
			defer mu.Unlock()
			statuses[name] = status
			if status != "ok" {
				statuses["status"] = "degraded"
			}
			return nil
		})
	}
	_ = g.Wait()

	if statuses["status"] != "ok" {
		response.Error(w, http.StatusServiceUnavailable, "Service degraded", statuses)
		return
	}
	response.Success(w, http.StatusOK, "ok", statuses)
}
