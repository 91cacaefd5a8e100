package usecase

import (
	"context"
	"testing"
	"time"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/testdb"
	"clinic-appointment-service/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authFixture struct {
	db    *gorm.DB
	jwt   *jwt.JWTService
	store service.TokenStore
	auth  AuthUsecase
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := testdb.New(t)
	log := testdb.Logger()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	jwtService := jwt.NewJWTService(config.JWTConfig{
		Secret:        "auth-test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
	store := service.NewRedisTokenStore(client)
	auth := NewAuthUsecase(db, log, repository.NewUserRepository(), repository.NewPatientProfileRepository(),
		jwtService, store, service.NewAuditService(log, repository.NewAuditLogRepository()))

	return &authFixture{db: db, jwt: jwtService, store: store, auth: auth}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.RegisterPatient(ctx, &dto.RegisterPatientRequest{
		Email:       "jane@clinic.test",
		Password:    "s3cret-pass",
		FullName:    "Jane Doe",
		DateOfBirth: "1990-04-12",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RolePatient, user.Role)

	var profile entity.PatientProfile
	require.NoError(t, f.db.First(&profile, "user_id = ?", user.ID).Error)
	assert.Equal(t, entity.GenderNotSelected, profile.Gender)
	require.NotNil(t, profile.DateOfBirth)

	_, err = f.auth.RegisterPatient(ctx, &dto.RegisterPatientRequest{Email: "jane@clinic.test", Password: "another-pass", FullName: "Jane Two"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	var users, profiles int64
	require.NoError(t, f.db.Model(&entity.User{}).Where("email = ?", "jane@clinic.test").Count(&users).Error)
	require.NoError(t, f.db.Model(&entity.PatientProfile{}).Count(&profiles).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), profiles, "a rejected registration must not leave a profile behind")

	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "jane@clinic.test", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "nobody@clinic.test", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tokens, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "jane@clinic.test", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, entity.RolePatient, tokens.Role)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	claims, err := f.jwt.Parse(tokens.AccessToken, jwt.AccessToken)
	require.NoError(t, err)
	exists, err := f.store.AccessExists(ctx, user.ID, claims.TokenID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegisterPatient_BadDateOfBirth(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.RegisterPatient(context.Background(), &dto.RegisterPatientRequest{
		Email: "x@clinic.test", Password: "s3cret-pass", FullName: "X", DateOfBirth: "12/04/1990",
	})
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	doctor := testdb.CreateDoctor(t, f.db, "Retired", 30)
	require.NoError(t, f.db.Model(&entity.User{}).Where("id = ?", doctor.UserID).Update("is_active", false).Error)

	_, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: doctor.User.Email, Password: testdb.Password})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestRefreshToken_SingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	patient := testdb.CreatePatient(t, f.db, "P1")

	tokens, err := f.auth.Login(ctx, &dto.LoginRequest{Email: patient.User.Email, Password: testdb.Password})
	require.NoError(t, err)

	rotated, err := f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	_, err = f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	patient := testdb.CreatePatient(t, f.db, "P1")

	tokens, err := f.auth.Login(ctx, &dto.LoginRequest{Email: patient.User.Email, Password: testdb.Password})
	require.NoError(t, err)
	claims, err := f.jwt.Parse(tokens.AccessToken, jwt.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, patient.UserID, claims.TokenID))

	exists, err := f.store.AccessExists(ctx, patient.UserID, claims.TokenID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestEnsureAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	cfg := config.AdminConfig{Email: "admin@clinic.test", Password: "admin-pass", FullName: "Clinic Admin"}

	require.NoError(t, f.auth.EnsureAdmin(ctx, cfg))
	require.NoError(t, f.auth.EnsureAdmin(ctx, cfg))
	require.NoError(t, f.auth.EnsureAdmin(ctx, config.AdminConfig{}))

	var admins int64
	require.NoError(t, f.db.Model(&entity.User{}).Where("role_id = ?", entity.RoleIDAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)

	tokens, err := f.auth.Login(ctx, &dto.LoginRequest{Email: cfg.Email, Password: cfg.Password})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, tokens.Role)
}
