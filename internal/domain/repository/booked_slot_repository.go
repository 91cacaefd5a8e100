package repository

import (
	"time"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookedSlotRepository interface {
	Create(db *gorm.DB, slot *entity.BookedSlot) error
	Find(db *gorm.DB, slot entity.Slot) (*entity.BookedSlot, error)
	Delete(db *gorm.DB, slot entity.Slot) (int64, error)
	DeleteHeldBy(db *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) (int64, error)
	FindByDoctor(db *gorm.DB, doctorID uuid.UUID) ([]entity.BookedSlot, error)
	FindOrphaned(db *gorm.DB, createdBefore time.Time, limit int) ([]entity.BookedSlot, error)
}
