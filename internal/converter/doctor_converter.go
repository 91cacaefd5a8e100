package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// DoctorProfileToResponse converts a DoctorProfile entity to DoctorResponse DTO
func DoctorProfileToResponse(profile *entity.DoctorProfile) *dto.DoctorResponse {
	if profile == nil {
		return nil
	}

	return &dto.DoctorResponse{
		ID:           profile.UserID,
		Email:        profile.User.Email,
		FullName:     profile.User.FullName,
		ImageURL:     profile.User.ImageURL,
		Speciality:   profile.Speciality,
		Degree:       profile.Degree,
		Experience:   profile.Experience,
		About:        profile.About,
		Fees:         profile.Fees,
		Available:    profile.Available,
		AddressLine1: profile.AddressLine1,
		AddressLine2: profile.AddressLine2,
		IsActive:     profile.User.Active(),
	}
}

// DoctorProfilesToResponses converts a slice of DoctorProfile entities to slice of DoctorResponse DTOs
func DoctorProfilesToResponses(profiles []entity.DoctorProfile) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(profiles))
	for i := range profiles {
		responses[i] = *DoctorProfileToResponse(&profiles[i])
	}
	return responses
}
