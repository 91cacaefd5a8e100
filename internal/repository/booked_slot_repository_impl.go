package repository

import (
	"errors"
	"time"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type bookedSlotRepository struct{}

func NewBookedSlotRepository() domainRepo.BookedSlotRepository {
	return &bookedSlotRepository{}
}

// Create fails with gorm.ErrDuplicatedKey when the slot is already held
// (requires TranslateError on the gorm config).
func (r *bookedSlotRepository) Create(db *gorm.DB, slot *entity.BookedSlot) error {
	return db.Create(slot).Error
}

func (r *bookedSlotRepository) Find(db *gorm.DB, slot entity.Slot) (*entity.BookedSlot, error) {
	var booked entity.BookedSlot
	err := db.Where("doctor_id = ? AND slot_date = ? AND slot_time = ?", slot.DoctorID, slot.Date, slot.Time).
		First(&booked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booked, nil
}

func (r *bookedSlotRepository) Delete(db *gorm.DB, slot entity.Slot) (int64, error) {
	result := db.Where("doctor_id = ? AND slot_date = ? AND slot_time = ?", slot.DoctorID, slot.Date, slot.Time).
		Delete(&entity.BookedSlot{})
	return result.RowsAffected, result.Error
}

// DeleteHeldBy removes the entry only while it still belongs to appointmentID.
func (r *bookedSlotRepository) DeleteHeldBy(db *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) (int64, error) {
	result := db.Where("doctor_id = ? AND slot_date = ? AND slot_time = ? AND appointment_id = ?",
		slot.DoctorID, slot.Date, slot.Time, appointmentID).
		Delete(&entity.BookedSlot{})
	return result.RowsAffected, result.Error
}

func (r *bookedSlotRepository) FindByDoctor(db *gorm.DB, doctorID uuid.UUID) ([]entity.BookedSlot, error) {
	var slots []entity.BookedSlot
	err := db.Where("doctor_id = ?", doctorID).Order("created_at ASC").Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// FindOrphaned returns entries older than createdBefore whose appointment is
// missing or cancelled.
func (r *bookedSlotRepository) FindOrphaned(db *gorm.DB, createdBefore time.Time, limit int) ([]entity.BookedSlot, error) {
	var slots []entity.BookedSlot
	err := db.Model(&entity.BookedSlot{}).
		Select("booked_slots.*").
		Joins("LEFT JOIN appointments ON appointments.id = booked_slots.appointment_id AND appointments.cancelled = ?", false).
		Where("appointments.id IS NULL AND booked_slots.created_at < ?", createdBefore).
		Order("booked_slots.created_at ASC").
		Limit(limit).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}
