package repository

import (
	"errors"
	"time"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	var appointments []entity.Appointment
	var total int64

	query := db.Model(&entity.Appointment{})
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		query = query.Where("doctor_id = ?", *filter.DoctorID)
	}
	switch filter.State {
	case entity.AppointmentStateBooked:
		query = query.Where("cancelled = ? AND is_completed = ? AND payment = ?", false, false, false)
	case entity.AppointmentStatePaid:
		query = query.Where("cancelled = ? AND is_completed = ? AND payment = ?", false, false, true)
	case entity.AppointmentStateCompleted:
		query = query.Where("cancelled = ? AND is_completed = ?", false, true)
	case entity.AppointmentStateCancelled:
		query = query.Where("cancelled = ?", true)
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	err := query.Order("created_at DESC").Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("doctor_id = ?", doctorID).Order("created_at DESC").Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindLatest(db *gorm.DB, doctorID *uuid.UUID, limit int) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	query := db.Model(&entity.Appointment{})
	if doctorID != nil {
		query = query.Where("doctor_id = ?", *doctorID)
	}
	err := query.Order("created_at DESC").Limit(limit).Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Count(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&entity.Appointment{}).Count(&count).Error
	return count, err
}

func (r *appointmentRepository) ExistsActiveForSlot(db *gorm.DB, slot entity.Slot) (bool, error) {
	var count int64
	err := db.Model(&entity.Appointment{}).
		Where("doctor_id = ? AND slot_date = ? AND slot_time = ? AND cancelled = ?", slot.DoctorID, slot.Date, slot.Time, false).
		Count(&count).Error
	return count > 0, err
}

// MarkCancelled atomically cancels an appointment ONLY if it's still open.
// Returns affected rows: 1 = success, 0 = already cancelled or completed.
func (r *appointmentRepository) MarkCancelled(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND cancelled = ? AND is_completed = ?", id, false, false).
		Updates(map[string]interface{}{
			"cancelled":    true,
			"cancelled_at": at,
		})
	return result.RowsAffected, result.Error
}

// MarkCompleted is the completion counterpart of MarkCancelled.
func (r *appointmentRepository) MarkCompleted(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND cancelled = ? AND is_completed = ?", id, false, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
		})
	return result.RowsAffected, result.Error
}

// MarkPaid flips payment only on an open, unpaid appointment.
func (r *appointmentRepository) MarkPaid(db *gorm.DB, id uuid.UUID, ref entity.PaymentReference, at time.Time) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND payment = ? AND cancelled = ? AND is_completed = ?", id, false, false, false).
		Updates(map[string]interface{}{
			"payment":            true,
			"payment_session_id": ref.SessionID,
			"payment_intent_id":  ref.PaymentIntentID,
			"paid_at":            at,
		})
	return result.RowsAffected, result.Error
}
