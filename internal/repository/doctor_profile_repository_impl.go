package repository

import (
	"errors"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type doctorProfileRepository struct{}

func NewDoctorProfileRepository() domainRepo.DoctorProfileRepository {
	return &doctorProfileRepository{}
}

// Create inserts only the profile row; the user must already exist.
func (r *doctorProfileRepository) Create(db *gorm.DB, profile *entity.DoctorProfile) error {
	return db.Omit(clause.Associations).Create(profile).Error
}

func (r *doctorProfileRepository) FindByUserID(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorProfile, error) {
	var profile entity.DoctorProfile
	err := db.Preload("User").Where("user_id = ?", doctorID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *doctorProfileRepository) FindAll(db *gorm.DB, filter entity.DoctorFilter) ([]entity.DoctorProfile, error) {
	var profiles []entity.DoctorProfile
	query := db.Preload("User")

	if filter.Speciality != "" {
		query = query.Where("speciality = ?", filter.Speciality)
	}
	if filter.AvailableOnly {
		activeUsers := db.Session(&gorm.Session{NewDB: true}).
			Model(&entity.User{}).
			Select("id").
			Where("is_active = ?", true)
		query = query.Where("available = ?", true).Where("user_id IN (?)", activeUsers)
	}

	err := query.Order("speciality ASC, user_id ASC").Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *doctorProfileRepository) Update(db *gorm.DB, profile *entity.DoctorProfile) error {
	return db.Omit("User").Save(profile).Error
}

// ToggleAvailability flips the flag in a single statement so concurrent toggles never lose an update.
func (r *doctorProfileRepository) ToggleAvailability(db *gorm.DB, doctorID uuid.UUID) (int64, error) {
	result := db.Model(&entity.DoctorProfile{}).
		Where("user_id = ?", doctorID).
		Update("available", gorm.Expr("NOT available"))
	return result.RowsAffected, result.Error
}
