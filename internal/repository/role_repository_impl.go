package repository

import (
	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roleRepository struct{}

func NewRoleRepository() domainRepo.RoleRepository {
	return &roleRepository{}
}

// EnsureDefaults inserts the fixed admin/doctor/patient roles, leaving existing rows untouched.
func (r *roleRepository) EnsureDefaults(db *gorm.DB) error {
	roles := entity.DefaultRoles()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error
}
