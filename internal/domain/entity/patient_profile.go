package entity

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile represents patient-specific profile data
type PatientProfile struct {
	UserID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Phone        string     `gorm:"type:varchar(20);index" json:"phone,omitempty"`
	DateOfBirth  *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Gender       string     `gorm:"type:varchar(16)" json:"gender,omitempty"`
	AddressLine1 string     `gorm:"type:varchar(255)" json:"address_line1,omitempty"`
	AddressLine2 string     `gorm:"type:varchar(255)" json:"address_line2,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (PatientProfile) TableName() string {
	return "patient_profiles"
}

// Gender constants
const (
	GenderMale        = "Male"
	GenderFemale      = "Female"
	GenderNotSelected = "Not Selected"
	DateOfBirthLayout = "2006-01-02"
)
