package dto

import "github.com/shopspring/decimal"

type AdminDashboardResponse struct {
	Doctors            int64                 `json:"doctors"`
	Patients           int64                 `json:"patients"`
	Appointments       int64                 `json:"appointments"`
	LatestAppointments []AppointmentResponse `json:"latest_appointments"`
}

type DoctorDashboardResponse struct {
	Earnings           decimal.Decimal       `json:"earnings"`
	Appointments       int                   `json:"appointments"`
	Patients           int                   `json:"patients"`
	LatestAppointments []AppointmentResponse `json:"latest_appointments"`
}
