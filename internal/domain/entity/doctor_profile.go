package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DoctorProfile represents doctor-specific profile data
type DoctorProfile struct {
	UserID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	Speciality   string          `gorm:"type:varchar(100);not null;index" json:"speciality"`
	Degree       string          `gorm:"type:varchar(100);not null" json:"degree"`
	Experience   string          `gorm:"type:varchar(50);not null" json:"experience"`
	About        string          `gorm:"type:text" json:"about,omitempty"`
	Fees         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"fees"`
	Available    bool            `gorm:"not null;index" json:"available"`
	AddressLine1 string          `gorm:"type:varchar(255)" json:"address_line1,omitempty"`
	AddressLine2 string          `gorm:"type:varchar(255)" json:"address_line2,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// Bookable reports whether new appointments may be taken for this doctor.
func (p *DoctorProfile) Bookable() bool {
	return p.Available && p.User.Active()
}

// DoctorFilter is a domain-level filter for listing doctors.
type DoctorFilter struct {
	Speciality    string
	AvailableOnly bool
}
