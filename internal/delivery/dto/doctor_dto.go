package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateDoctorRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=8"`
	FullName     string          `json:"full_name" validate:"required,min=2"`
	Speciality   string          `json:"speciality" validate:"required"`
	Degree       string          `json:"degree" validate:"required"`
	Experience   string          `json:"experience" validate:"required"`
	About        string          `json:"about" validate:"omitempty"`
	Fees         decimal.Decimal `json:"fees"`
	AddressLine1 string          `json:"address_line1" validate:"omitempty,max=255"`
	AddressLine2 string          `json:"address_line2" validate:"omitempty,max=255"`
}

type UpdateDoctorRequest struct {
	Email        string           `json:"email" validate:"omitempty,email"`
	Password     string           `json:"password" validate:"omitempty,min=8"`
	FullName     string           `json:"full_name" validate:"omitempty,min=2"`
	Speciality   string           `json:"speciality" validate:"omitempty"`
	Degree       string           `json:"degree" validate:"omitempty"`
	Experience   string           `json:"experience" validate:"omitempty"`
	About        *string          `json:"about" validate:"omitempty"`
	Fees         *decimal.Decimal `json:"fees"`
	AddressLine1 *string          `json:"address_line1" validate:"omitempty,max=255"`
	AddressLine2 *string          `json:"address_line2" validate:"omitempty,max=255"`
	Available    *bool            `json:"available"`
	IsActive     *bool            `json:"is_active"`
}

// DoctorUpdateSelfRequest is what a doctor may change on their own profile.
type DoctorUpdateSelfRequest struct {
	Fees         *decimal.Decimal `json:"fees"`
	AddressLine1 *string          `json:"address_line1" validate:"omitempty,max=255"`
	AddressLine2 *string          `json:"address_line2" validate:"omitempty,max=255"`
	About        *string          `json:"about" validate:"omitempty"`
	Available    *bool            `json:"available"`
	OldPassword  string           `json:"old_password" validate:"required_with=Password"`
	Password     string           `json:"password" validate:"omitempty,min=8"`
}

// Response DTOs

type DoctorResponse struct {
	ID           uuid.UUID           `json:"id"`
	Email        string              `json:"email"`
	FullName     string              `json:"full_name"`
	ImageURL     string              `json:"image_url,omitempty"`
	Speciality   string              `json:"speciality"`
	Degree       string              `json:"degree"`
	Experience   string              `json:"experience"`
	About        string              `json:"about,omitempty"`
	Fees         decimal.Decimal     `json:"fees"`
	Available    bool                `json:"available"`
	AddressLine1 string              `json:"address_line1,omitempty"`
	AddressLine2 string              `json:"address_line2,omitempty"`
	IsActive     bool                `json:"is_active"`
	BookedSlots  map[string][]string `json:"booked_slots,omitempty"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}

type BookedSlotsResponse struct {
	DoctorID    uuid.UUID           `json:"doctor_id"`
	BookedSlots map[string][]string `json:"booked_slots"`
}

type SlotAvailabilityResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	SlotDate string    `json:"slot_date"`
	SlotTime string    `json:"slot_time"`
	Booked   bool      `json:"booked"`
}
