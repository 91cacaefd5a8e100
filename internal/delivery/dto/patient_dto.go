package dto

import (
	"github.com/google/uuid"
)

// Request DTOs

type PatientUpdateSelfRequest struct {
	FullName     string  `json:"full_name" validate:"omitempty,min=2"`
	Phone        *string `json:"phone" validate:"omitempty,min=7,max=20"`
	DateOfBirth  *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender       *string `json:"gender" validate:"omitempty,oneof=Male Female 'Not Selected'"`
	AddressLine1 *string `json:"address_line1" validate:"omitempty,max=255"`
	AddressLine2 *string `json:"address_line2" validate:"omitempty,max=255"`
	OldPassword  string  `json:"old_password" validate:"required_with=Password"`
	Password     string  `json:"password" validate:"omitempty,min=8"`
}

// Response DTOs

type PatientResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	ImageURL     string    `json:"image_url,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	DateOfBirth  string    `json:"date_of_birth,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	AddressLine1 string    `json:"address_line1,omitempty"`
	AddressLine2 string    `json:"address_line2,omitempty"`
}
