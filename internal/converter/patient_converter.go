package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// PatientProfileToResponse converts a PatientProfile entity to PatientResponse DTO
func PatientProfileToResponse(profile *entity.PatientProfile) *dto.PatientResponse {
	if profile == nil {
		return nil
	}

	response := &dto.PatientResponse{
		ID:           profile.UserID,
		Email:        profile.User.Email,
		FullName:     profile.User.FullName,
		ImageURL:     profile.User.ImageURL,
		Phone:        profile.Phone,
		Gender:       profile.Gender,
		AddressLine1: profile.AddressLine1,
		AddressLine2: profile.AddressLine2,
	}
	if profile.DateOfBirth != nil {
		response.DateOfBirth = profile.DateOfBirth.Format(entity.DateOfBirthLayout)
	}
	return response
}
