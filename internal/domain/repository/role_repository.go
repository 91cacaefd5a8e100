package repository

import "gorm.io/gorm"

type RoleRepository interface {
	EnsureDefaults(db *gorm.DB) error
}
