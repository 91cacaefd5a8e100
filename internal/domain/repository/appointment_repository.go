package repository

import (
	"time"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindAll(db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	FindLatest(db *gorm.DB, doctorID *uuid.UUID, limit int) ([]entity.Appointment, error)
	Count(db *gorm.DB) (int64, error)
	ExistsActiveForSlot(db *gorm.DB, slot entity.Slot) (bool, error)
	MarkCancelled(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error)
	MarkCompleted(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error)
	MarkPaid(db *gorm.DB, id uuid.UUID, ref entity.PaymentReference, at time.Time) (int64, error)
}
