package usecase

import (
	"context"
	"io"
	"time"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PatientProfileUsecase interface {
	GetSelfProfile(ctx context.Context, requester entity.Requester) (*dto.PatientResponse, error)
	UpdateSelfProfile(ctx context.Context, requester entity.Requester, req *dto.PatientUpdateSelfRequest) (*dto.PatientResponse, error)
	UploadImage(ctx context.Context, requester entity.Requester, file io.Reader, size int64, contentType string) (*dto.PatientResponse, error)
}

type patientProfileUsecase struct {
	db                 *gorm.DB
	log                *logrus.Logger
	userRepo           repository.UserRepository
	patientProfileRepo repository.PatientProfileRepository
	imageStorage       service.ImageStorage
	auditService       service.AuditService
}

func NewPatientProfileUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	patientProfileRepo repository.PatientProfileRepository,
	imageStorage service.ImageStorage,
	auditService service.AuditService,
) PatientProfileUsecase {
	return &patientProfileUsecase{
		db:                 db,
		log:                log,
		userRepo:           userRepo,
		patientProfileRepo: patientProfileRepo,
		imageStorage:       imageStorage,
		auditService:       auditService,
	}
}

func (u *patientProfileUsecase) GetSelfProfile(ctx context.Context, requester entity.Requester) (*dto.PatientResponse, error) {
	profile, err := u.patientProfileRepo.FindByUserID(u.db.WithContext(ctx), requester.UserID)
	if err != nil {
		u.log.Warnf("Failed to find patient profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrPatientNotFound
	}

	return converter.PatientProfileToResponse(profile), nil
}

// UpdateSelfProfile updates the patient's own profile. Changing the password
// requires the current one. Existing appointments keep their snapshot.
func (u *patientProfileUsecase) UpdateSelfProfile(ctx context.Context, requester entity.Requester, req *dto.PatientUpdateSelfRequest) (*dto.PatientResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	profile, err := u.patientProfileRepo.FindByUserID(tx, requester.UserID)
	if err != nil {
		u.log.Warnf("Failed to find patient profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrPatientNotFound
	}

	oldValue := converter.PatientProfileToResponse(profile)

	userChanged := false
	if req.Password != "" {
		if err := changePassword(&profile.User, req.OldPassword, req.Password); err != nil {
			return nil, err
		}
		userChanged = true
	}
	if req.FullName != "" {
		profile.User.FullName = req.FullName
		userChanged = true
	}
	if userChanged {
		if err := u.userRepo.Update(tx, &profile.User); err != nil {
			u.log.Warnf("Failed to update patient user: %+v", err)
			return nil, err
		}
	}

	if req.Phone != nil {
		profile.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(entity.DateOfBirthLayout, *req.DateOfBirth)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		profile.DateOfBirth = &dob
	}
	if req.Gender != nil {
		profile.Gender = *req.Gender
	}
	if req.AddressLine1 != nil {
		profile.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		profile.AddressLine2 = *req.AddressLine2
	}

	if err := u.patientProfileRepo.Update(tx, profile); err != nil {
		u.log.Warnf("Failed to update patient profile: %+v", err)
		return nil, err
	}

	newValue := converter.PatientProfileToResponse(profile)
	if err := u.auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionProfileUpdate, "patient_profile", requester.UserID.String(), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return newValue, nil
}

func (u *patientProfileUsecase) UploadImage(ctx context.Context, requester entity.Requester, file io.Reader, size int64, contentType string) (*dto.PatientResponse, error) {
	profile, err := u.patientProfileRepo.FindByUserID(u.db.WithContext(ctx), requester.UserID)
	if err != nil {
		u.log.Warnf("Failed to find patient profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrPatientNotFound
	}

	imageURL, err := uploadProfileImage(ctx, u.db, u.log, u.imageStorage, u.userRepo, u.auditService, requester, requester.UserID, file, size, contentType)
	if err != nil {
		return nil, err
	}

	profile.User.ImageURL = imageURL
	return converter.PatientProfileToResponse(profile), nil
}
