package usecase

import (
	"context"
	"errors"
	"io"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrInvalidFees    = errors.New("fees must be greater than zero")
)

type DoctorProfileUsecase interface {
	CreateDoctor(ctx context.Context, requester entity.Requester, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error)
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	ListDoctors(ctx context.Context, filter entity.DoctorFilter) (*dto.DoctorListResponse, error)
	UpdateDoctor(ctx context.Context, requester entity.Requester, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
	ToggleAvailability(ctx context.Context, requester entity.Requester, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	UpdateSelfProfile(ctx context.Context, requester entity.Requester, req *dto.DoctorUpdateSelfRequest) (*dto.DoctorResponse, error)
	UploadImage(ctx context.Context, requester entity.Requester, doctorID uuid.UUID, file io.Reader, size int64, contentType string) (*dto.DoctorResponse, error)
}

type doctorProfileUsecase struct {
	db                *gorm.DB
	log               *logrus.Logger
	userRepo          repository.UserRepository
	doctorProfileRepo repository.DoctorProfileRepository
	slotLedger        service.SlotLedger
	imageStorage      service.ImageStorage
	auditService      service.AuditService
}

func NewDoctorProfileUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	slotLedger service.SlotLedger,
	imageStorage service.ImageStorage,
	auditService service.AuditService,
) DoctorProfileUsecase {
	return &doctorProfileUsecase{
		db:                db,
		log:               log,
		userRepo:          userRepo,
		doctorProfileRepo: doctorProfileRepo,
		slotLedger:        slotLedger,
		imageStorage:      imageStorage,
		auditService:      auditService,
	}
}

func (u *doctorProfileUsecase) CreateDoctor(ctx context.Context, requester entity.Requester, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	if !req.Fees.GreaterThan(decimal.Zero) {
		return nil, ErrInvalidFees
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	user := entity.User{
		Email:    req.Email,
		Password: hashedPassword,
		FullName: req.FullName,
		RoleID:   entity.RoleIDDoctor,
	}
	if err := u.userRepo.Create(tx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}

	doctorProfile := &entity.DoctorProfile{
		UserID:       user.ID,
		Speciality:   req.Speciality,
		Degree:       req.Degree,
		Experience:   req.Experience,
		About:        req.About,
		Fees:         req.Fees,
		Available:    true,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		User:         user,
	}
	if err := u.doctorProfileRepo.Create(tx, doctorProfile); err != nil {
		u.log.Warnf("Failed to create doctor profile: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &requester.UserID, entity.AuditActionDoctorCreate, "doctor_profile", doctorProfile.UserID.String(), converter.DoctorProfileToResponse(doctorProfile)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.DoctorProfileToResponse(doctorProfile), nil
}

// GetDoctor returns the profile with the doctor's booked slots.
func (u *doctorProfileUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	profile, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	booked, err := u.slotLedger.BookedSlots(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to list booked slots: %+v", err)
		return nil, err
	}

	response := converter.DoctorProfileToResponse(profile)
	response.BookedSlots = booked
	return response, nil
}

func (u *doctorProfileUsecase) ListDoctors(ctx context.Context, filter entity.DoctorFilter) (*dto.DoctorListResponse, error) {
	profiles, err := u.doctorProfileRepo.FindAll(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find all doctor profiles: %+v", err)
		return nil, err
	}

	doctors := converter.DoctorProfilesToResponses(profiles)

	return &dto.DoctorListResponse{
		Doctors: doctors,
		Total:   len(doctors),
	}, nil
}

func (u *doctorProfileUsecase) UpdateDoctor(ctx context.Context, requester entity.Requester, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	if req.Fees != nil && !req.Fees.GreaterThan(decimal.Zero) {
		return nil, ErrInvalidFees
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	profile, err := u.doctorProfileRepo.FindByUserID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	oldValue := converter.DoctorProfileToResponse(profile)

	if req.Email != "" {
		profile.User.Email = req.Email
	}
	if req.Password != "" {
		hashed, err := hashPassword(req.Password)
		if err != nil {
			u.log.Warnf("Failed to hash password: %+v", err)
			return nil, err
		}
		profile.User.Password = hashed
	}
	if req.FullName != "" {
		profile.User.FullName = req.FullName
	}
	if req.IsActive != nil {
		profile.User.IsActive = req.IsActive
	}
	if req.Speciality != "" {
		profile.Speciality = req.Speciality
	}
	if req.Degree != "" {
		profile.Degree = req.Degree
	}
	if req.Experience != "" {
		profile.Experience = req.Experience
	}
	if req.About != nil {
		profile.About = *req.About
	}
	if req.Fees != nil {
		profile.Fees = *req.Fees
	}
	if req.AddressLine1 != nil {
		profile.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		profile.AddressLine2 = *req.AddressLine2
	}
	if req.Available != nil {
		profile.Available = *req.Available
	}

	if err := u.userRepo.Update(tx, &profile.User); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to update doctor user: %+v", err)
		return nil, err
	}
	if err := u.doctorProfileRepo.Update(tx, profile); err != nil {
		u.log.Warnf("Failed to update doctor profile: %+v", err)
		return nil, err
	}

	newValue := converter.DoctorProfileToResponse(profile)
	if err := u.auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionDoctorUpdate, "doctor_profile", doctorID.String(), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return newValue, nil
}

// ToggleAvailability flips whether the doctor takes new bookings. Existing
// appointments are unaffected. Admins may toggle anyone, doctors only themselves.
func (u *doctorProfileUsecase) ToggleAvailability(ctx context.Context, requester entity.Requester, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	if !requester.IsAdmin() && !(requester.IsDoctor() && requester.UserID == doctorID) {
		return nil, ErrForbidden
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := u.doctorProfileRepo.ToggleAvailability(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to toggle doctor availability: %+v", err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrDoctorNotFound
	}

	profile, err := u.doctorProfileRepo.FindByUserID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionDoctorAvailability, "doctor_profile", doctorID.String(),
		map[string]interface{}{"available": !profile.Available},
		map[string]interface{}{"available": profile.Available},
	); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.DoctorProfileToResponse(profile), nil
}

// UpdateSelfProfile updates the doctor's own profile.
//
// Allowed fields: fees, address, about, availability and password (with old password verification).
func (u *doctorProfileUsecase) UpdateSelfProfile(ctx context.Context, requester entity.Requester, req *dto.DoctorUpdateSelfRequest) (*dto.DoctorResponse, error) {
	if req.Fees != nil && !req.Fees.GreaterThan(decimal.Zero) {
		return nil, ErrInvalidFees
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	profile, err := u.doctorProfileRepo.FindByUserID(tx, requester.UserID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	oldValue := converter.DoctorProfileToResponse(profile)

	if req.Password != "" {
		if err := changePassword(&profile.User, req.OldPassword, req.Password); err != nil {
			return nil, err
		}
		if err := u.userRepo.Update(tx, &profile.User); err != nil {
			u.log.Warnf("Failed to update doctor password: %+v", err)
			return nil, err
		}
	}

	if req.Fees != nil {
		profile.Fees = *req.Fees
	}
	if req.AddressLine1 != nil {
		profile.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		profile.AddressLine2 = *req.AddressLine2
	}
	if req.About != nil {
		profile.About = *req.About
	}
	if req.Available != nil {
		profile.Available = *req.Available
	}

	if err := u.doctorProfileRepo.Update(tx, profile); err != nil {
		u.log.Warnf("Failed to update doctor profile: %+v", err)
		return nil, err
	}

	newValue := converter.DoctorProfileToResponse(profile)
	if err := u.auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionProfileUpdate, "doctor_profile", requester.UserID.String(), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return newValue, nil
}

func (u *doctorProfileUsecase) UploadImage(ctx context.Context, requester entity.Requester, doctorID uuid.UUID, file io.Reader, size int64, contentType string) (*dto.DoctorResponse, error) {
	if !requester.IsAdmin() && requester.UserID != doctorID {
		return nil, ErrForbidden
	}

	profile, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	imageURL, err := uploadProfileImage(ctx, u.db, u.log, u.imageStorage, u.userRepo, u.auditService, requester, doctorID, file, size, contentType)
	if err != nil {
		return nil, err
	}

	profile.User.ImageURL = imageURL
	return converter.DoctorProfileToResponse(profile), nil
}
