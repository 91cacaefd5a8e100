package entity

import (
	"database/sql/driver"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentState is derived from the appointment flags, never stored.
type AppointmentState string

const (
	AppointmentStateBooked    AppointmentState = "booked"
	AppointmentStatePaid      AppointmentState = "paid"
	AppointmentStateCompleted AppointmentState = "completed"
	AppointmentStateCancelled AppointmentState = "cancelled"
)

// DoctorSnapshot freezes the doctor's public data at booking time.
type DoctorSnapshot struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	ImageURL     string          `json:"image_url,omitempty"`
	Speciality   string          `json:"speciality"`
	Degree       string          `json:"degree"`
	Experience   string          `json:"experience"`
	Fees         decimal.Decimal `json:"fees"`
	AddressLine1 string          `json:"address_line1,omitempty"`
	AddressLine2 string          `json:"address_line2,omitempty"`
}

func (s DoctorSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *DoctorSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = DoctorSnapshot{}
		return nil
	}
	return scanJSON(value, s)
}

// PatientSnapshot freezes the patient's contact data at booking time.
type PatientSnapshot struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	ImageURL     string `json:"image_url,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Gender       string `json:"gender,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
}

func (s PatientSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *PatientSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = PatientSnapshot{}
		return nil
	}
	return scanJSON(value, s)
}

// Appointment is a patient's reservation of one doctor slot.
type Appointment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_appointments_doctor_slot" json:"doctor_id"`
	SlotDate         string          `gorm:"type:varchar(16);not null;index:idx_appointments_doctor_slot" json:"slot_date"`
	SlotTime         string          `gorm:"type:varchar(16);not null;index:idx_appointments_doctor_slot" json:"slot_time"`
	DoctorSnapshot   DoctorSnapshot  `gorm:"type:jsonb;not null" json:"doctor_snapshot"`
	PatientSnapshot  PatientSnapshot `gorm:"type:jsonb;not null" json:"patient_snapshot"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Cancelled        bool            `gorm:"not null;default:false;index" json:"cancelled"`
	IsCompleted      bool            `gorm:"not null;default:false" json:"is_completed"`
	Payment          bool            `gorm:"not null;default:false" json:"payment"`
	PaymentSessionID string          `gorm:"type:varchar(255);index" json:"payment_session_id,omitempty"`
	PaymentIntentID  string          `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NewAppointment builds an unpersisted appointment with its ID already
// assigned so the ledger entry can reference it before the insert.
func NewAppointment(doctor *DoctorProfile, patient *PatientProfile, slot Slot) *Appointment {
	return &Appointment{
		ID:              uuid.New(),
		PatientID:       patient.UserID,
		DoctorID:        doctor.UserID,
		SlotDate:        slot.Date,
		SlotTime:        slot.Time,
		DoctorSnapshot:  NewDoctorSnapshot(doctor),
		PatientSnapshot: NewPatientSnapshot(patient),
		Amount:          doctor.Fees,
	}
}

func NewDoctorSnapshot(doctor *DoctorProfile) DoctorSnapshot {
	return DoctorSnapshot{
		Name:         doctor.User.FullName,
		Email:        doctor.User.Email,
		ImageURL:     doctor.User.ImageURL,
		Speciality:   doctor.Speciality,
		Degree:       doctor.Degree,
		Experience:   doctor.Experience,
		Fees:         doctor.Fees,
		AddressLine1: doctor.AddressLine1,
		AddressLine2: doctor.AddressLine2,
	}
}

func NewPatientSnapshot(patient *PatientProfile) PatientSnapshot {
	snapshot := PatientSnapshot{
		Name:         patient.User.FullName,
		Email:        patient.User.Email,
		ImageURL:     patient.User.ImageURL,
		Phone:        patient.Phone,
		Gender:       patient.Gender,
		AddressLine1: patient.AddressLine1,
		AddressLine2: patient.AddressLine2,
	}
	if patient.DateOfBirth != nil {
		snapshot.DateOfBirth = patient.DateOfBirth.Format(DateOfBirthLayout)
	}
	return snapshot
}

func (a *Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.SlotDate, Time: a.SlotTime}
}

// State collapses the flags. Cancelled and Completed win over Paid.
func (a *Appointment) State() AppointmentState {
	switch {
	case a.Cancelled:
		return AppointmentStateCancelled
	case a.IsCompleted:
		return AppointmentStateCompleted
	case a.Payment:
		return AppointmentStatePaid
	default:
		return AppointmentStateBooked
	}
}

func (a *Appointment) IsTerminal() bool {
	return a.Cancelled || a.IsCompleted
}

// AppointmentFilter is a domain-level filter for listing appointments.
type AppointmentFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	State     AppointmentState
	Page      int
	Limit     int
}

// PaymentReference identifies the gateway transaction that settled an appointment.
type PaymentReference struct {
	SessionID       string
	PaymentIntentID string
}
