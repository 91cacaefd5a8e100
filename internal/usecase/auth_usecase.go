package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("account is deactivated")
	ErrInvalidDateFormat  = errors.New("invalid date format, use YYYY-MM-DD")
)

type AuthUsecase interface {
	RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, accessTokenID string) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error
}

type authUsecase struct {
	db                 *gorm.DB
	log                *logrus.Logger
	userRepo           repository.UserRepository
	patientProfileRepo repository.PatientProfileRepository
	jwtService         *jwt.JWTService
	tokenStore         service.TokenStore
	auditService       service.AuditService
}

func NewAuthUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	patientProfileRepo repository.PatientProfileRepository,
	jwtService *jwt.JWTService,
	tokenStore service.TokenStore,
	auditService service.AuditService,
) AuthUsecase {
	return &authUsecase{
		db:                 db,
		log:                log,
		userRepo:           userRepo,
		patientProfileRepo: patientProfileRepo,
		jwtService:         jwtService,
		tokenStore:         tokenStore,
		auditService:       auditService,
	}
}

func (u *authUsecase) RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error) {
	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse(entity.DateOfBirthLayout, req.DateOfBirth)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		dob = &parsed
	}

	gender := req.Gender
	if gender == "" {
		gender = entity.GenderNotSelected
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
		RoleID:   entity.RoleIDPatient,
	}
	if err := u.userRepo.Create(tx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}

	patientProfile := &entity.PatientProfile{
		UserID:      user.ID,
		Phone:       req.Phone,
		DateOfBirth: dob,
		Gender:      gender,
		User:        user,
	}
	if err := u.patientProfileRepo.Create(tx, patientProfile); err != nil {
		u.log.Warnf("Failed to create patient profile: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &patientProfile.UserID, entity.AuditActionUserRegister, "user", patientProfile.UserID.String(), converter.UserToResponse(&patientProfile.User)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.UserToResponse(&patientProfile.User), nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// Find user by email (read-only, no transaction needed)
	user, err := u.userRepo.FindByEmail(u.db.WithContext(ctx), req.Email)
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active() {
		return nil, ErrUserInactive
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := u.auditService.LogEvent(ctx, u.db, &user.ID, entity.AuditActionUserLogin, map[string]interface{}{"email": user.Email}); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return tokens, nil
}

// Logout revokes the presented access token and every refresh token of the user.
func (u *authUsecase) Logout(ctx context.Context, userID uuid.UUID, accessTokenID string) error {
	if err := u.tokenStore.RevokeAccess(ctx, userID, accessTokenID); err != nil {
		u.log.Warnf("Failed to delete access token: %+v", err)
		return err
	}
	if err := u.tokenStore.RevokeAllRefresh(ctx, userID); err != nil {
		u.log.Warnf("Failed to delete refresh tokens: %+v", err)
		return err
	}

	if err := u.auditService.LogEvent(ctx, u.db, &userID, entity.AuditActionUserLogout, map[string]interface{}{"token_id": accessTokenID}); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.Parse(req.RefreshToken, jwt.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	exists, err := u.tokenStore.RefreshExists(ctx, claims.UserID, claims.TokenID)
	if err != nil {
		u.log.Warnf("Failed to check refresh token in Redis: %+v", err)
		return nil, err
	}
	if !exists {
		return nil, ErrTokenRevoked
	}

	// Refresh tokens are single use
	if err := u.tokenStore.RevokeRefresh(ctx, claims.UserID, claims.TokenID); err != nil {
		u.log.Warnf("Failed to delete old refresh token: %+v", err)
		return nil, err
	}

	// Re-read the user so role changes and deactivation take effect
	user, err := u.userRepo.FindByID(u.db.WithContext(ctx), claims.UserID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.Active() {
		return nil, ErrUserInactive
	}

	return u.issueTokens(ctx, user)
}

// issueTokens signs a fresh access/refresh pair and registers both ids in the token store.
func (u *authUsecase) issueTokens(ctx context.Context, user *entity.User) (*dto.TokenResponse, error) {
	sub := jwt.Subject{UserID: user.ID, Email: user.Email, RoleID: user.RoleID}

	access, err := u.jwtService.Issue(jwt.AccessToken, sub)
	if err != nil {
		u.log.Warnf("Failed to issue access token: %+v", err)
		return nil, err
	}
	refresh, err := u.jwtService.Issue(jwt.RefreshToken, sub)
	if err != nil {
		u.log.Warnf("Failed to issue refresh token: %+v", err)
		return nil, err
	}

	accessTTL := u.jwtService.TTL(jwt.AccessToken)
	if err := u.tokenStore.SaveAccess(ctx, user.ID, access.ID, accessTTL); err != nil {
		u.log.Warnf("Failed to store access token: %+v", err)
		return nil, err
	}
	if err := u.tokenStore.SaveRefresh(ctx, user.ID, refresh.ID, u.jwtService.TTL(jwt.RefreshToken)); err != nil {
		u.log.Warnf("Failed to store refresh token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(accessTTL.Seconds()),
		Role:         entity.RoleName(user.RoleID),
	}, nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user), nil
}

// EnsureAdmin creates the configured admin account on first boot. An existing
// account with that email is left alone.
func (u *authUsecase) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		u.log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	existing, err := u.userRepo.FindByEmail(u.db.WithContext(ctx), cfg.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.RoleID != entity.RoleIDAdmin {
			u.log.Warnf("Admin email %s belongs to a non-admin account", cfg.Email)
		}
		return nil
	}

	hashedPassword, err := hashPassword(cfg.Password)
	if err != nil {
		return err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	admin := &entity.User{
		Email:    cfg.Email,
		Password: hashedPassword,
		FullName: cfg.FullName,
		RoleID:   entity.RoleIDAdmin,
	}
	if err := u.userRepo.Create(tx, admin); err != nil {
		// another instance won the race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	if err := u.auditService.LogCreate(ctx, tx, &admin.ID, entity.AuditActionAdminSeed, "user", admin.ID.String(), converter.UserToResponse(admin)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	u.log.Infof("Seeded admin account %s", cfg.Email)
	return nil
}
